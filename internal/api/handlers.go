package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/torisu27/jeobot/internal/jeopardy"
)

const (
	defaultLeaderboardSize = 10
	maxListSize            = 100
)

// Public handlers

func (a *API) handleActiveGames(w http.ResponseWriter, r *http.Request) {
	statuses := a.games.Active()
	if statuses == nil {
		statuses = []jeopardy.Status{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statuses)
}

func (a *API) handleGameStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	status, err := a.games.Status(vars["channel_id"])
	if err != nil {
		http.Error(w, "no active game in this channel", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), defaultLeaderboardSize)

	entries, err := a.ledger.Top(r.Context(), limit)
	if err != nil {
		a.log.Warnw("failed to load leaderboard", "error", err)
		http.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// Protected handlers

func (a *API) handleUserBalance(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(claimsKey).(*Claims)

	amount, err := a.ledger.Balance(r.Context(), claims.UserID)
	if err != nil {
		a.log.Warnw("failed to load balance", "user", claims.UserID, "error", err)
		http.Error(w, "failed to load balance", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"balance": amount})
}

func (a *API) handleUserTransactions(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(claimsKey).(*Claims)
	limit := parseLimit(r.URL.Query().Get("limit"), defaultLeaderboardSize)

	txs, err := a.ledger.Transactions(r.Context(), claims.UserID, limit)
	if err != nil {
		a.log.Warnw("failed to load transactions", "user", claims.UserID, "error", err)
		http.Error(w, "failed to load transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txs)
}

func parseLimit(raw string, fallback int) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > maxListSize {
		return maxListSize
	}
	return limit
}
