package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/torisu27/jeobot/internal/config"
	"github.com/torisu27/jeobot/internal/jeopardy"
	"github.com/torisu27/jeobot/internal/ledger"
)

type fakeRegistry struct {
	statuses map[string]jeopardy.Status
}

func (f *fakeRegistry) Status(channelID string) (*jeopardy.Status, error) {
	s, ok := f.statuses[channelID]
	if !ok {
		return nil, jeopardy.ErrNoActiveGame
	}
	return &s, nil
}

func (f *fakeRegistry) Active() []jeopardy.Status {
	var out []jeopardy.Status
	for _, s := range f.statuses {
		out = append(out, s)
	}
	return out
}

type fakeLedgerReader struct {
	balances map[string]int64
	top      []ledger.Entry
	txs      []ledger.Transaction
}

func (f *fakeLedgerReader) Balance(ctx context.Context, userID string) (int64, error) {
	return f.balances[userID], nil
}

func (f *fakeLedgerReader) Top(ctx context.Context, limit int) ([]ledger.Entry, error) {
	if limit < len(f.top) {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func (f *fakeLedgerReader) Transactions(ctx context.Context, userID string, limit int) ([]ledger.Transaction, error) {
	return f.txs, nil
}

func newTestAPI(games GameRegistry, ldg LedgerReader) *API {
	cfg := &config.Config{JWTSecret: "test-secret"}
	return New(cfg, games, ldg, zap.NewNop().Sugar())
}

func TestHandleGameStatus(t *testing.T) {
	registry := &fakeRegistry{statuses: map[string]jeopardy.Status{
		"c1": {
			ChannelID:      "c1",
			GuildID:        "g1",
			CluesRemaining: 7,
			Players: []jeopardy.PlayerStatus{
				{UserID: "u1", Name: "Alice", Score: 400},
			},
		},
	}}
	api := newTestAPI(registry, &fakeLedgerReader{})

	req := httptest.NewRequest("GET", "/api/public/channels/c1/game", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %v", ct)
	}

	var status jeopardy.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.ChannelID != "c1" || status.CluesRemaining != 7 {
		t.Errorf("unexpected status %+v", status)
	}
	if len(status.Players) != 1 || status.Players[0].Name != "Alice" {
		t.Errorf("unexpected players %+v", status.Players)
	}
}

func TestHandleGameStatusNotFound(t *testing.T) {
	api := newTestAPI(&fakeRegistry{}, &fakeLedgerReader{})

	req := httptest.NewRequest("GET", "/api/public/channels/missing/game", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %v", w.Result().StatusCode)
	}
	if !strings.Contains(w.Body.String(), "no active game") {
		t.Errorf("Expected error body, got %q", w.Body.String())
	}
}

func TestHandleActiveGamesEmpty(t *testing.T) {
	api := newTestAPI(&fakeRegistry{}, &fakeLedgerReader{})

	req := httptest.NewRequest("GET", "/api/public/games", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Result().StatusCode)
	}
	// Empty registry encodes as an empty array, not null.
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("Expected [], got %q", body)
	}
}

func TestHandleLeaderboard(t *testing.T) {
	ldg := &fakeLedgerReader{top: []ledger.Entry{
		{UserID: "u1", Amount: 900},
		{UserID: "u2", Amount: 400},
	}}
	api := newTestAPI(&fakeRegistry{}, ldg)

	req := httptest.NewRequest("GET", "/api/public/leaderboard?limit=1", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Result().StatusCode)
	}

	var entries []ledger.Entry
	if err := json.NewDecoder(w.Result().Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "u1" {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	api := newTestAPI(&fakeRegistry{}, &fakeLedgerReader{})

	req := httptest.NewRequest("GET", "/api/user/balance", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %v", w.Result().StatusCode)
	}
}

func TestAuthMiddlewareRejectsBadToken(t *testing.T) {
	api := newTestAPI(&fakeRegistry{}, &fakeLedgerReader{})

	req := httptest.NewRequest("GET", "/api/user/balance", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %v", w.Result().StatusCode)
	}
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	ldg := &fakeLedgerReader{balances: map[string]int64{"u1": 1500}}
	api := newTestAPI(&fakeRegistry{}, ldg)

	claims := &Claims{
		UserID:   "u1",
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(api.jwtSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/user/balance", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("Expected status OK, got %v: %s", w.Result().StatusCode, w.Body.String())
	}

	var body map[string]int64
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["balance"] != 1500 {
		t.Errorf("balance = %d, want 1500", body["balance"])
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw      string
		fallback int
		want     int
	}{
		{"", 10, 10},
		{"abc", 10, 10},
		{"-5", 10, 10},
		{"0", 10, 10},
		{"25", 10, 25},
		{"9999", 10, maxListSize},
	}
	for _, tt := range tests {
		if got := parseLimit(tt.raw, tt.fallback); got != tt.want {
			t.Errorf("parseLimit(%q, %d) = %d, want %d", tt.raw, tt.fallback, got, tt.want)
		}
	}
}
