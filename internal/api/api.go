package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/torisu27/jeobot/internal/config"
	"github.com/torisu27/jeobot/internal/jeopardy"
	"github.com/torisu27/jeobot/internal/ledger"
)

// GameRegistry is the read side of the live game registry.
type GameRegistry interface {
	Status(channelID string) (*jeopardy.Status, error)
	Active() []jeopardy.Status
}

// LedgerReader is the read side of the currency ledger.
type LedgerReader interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Top(ctx context.Context, limit int) ([]ledger.Entry, error)
	Transactions(ctx context.Context, userID string, limit int) ([]ledger.Transaction, error)
}

type API struct {
	router      *mux.Router
	games       GameRegistry
	ledger      LedgerReader
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	log         *zap.SugaredLogger
}

func New(cfg *config.Config, games GameRegistry, ldg LedgerReader, log *zap.SugaredLogger) *API {
	api := &API{
		router:    mux.NewRouter(),
		games:     games,
		ledger:    ldg,
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
		log:       log,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Public endpoints
	a.router.HandleFunc("/api/public/games", a.handleActiveGames).Methods("GET")
	a.router.HandleFunc("/api/public/channels/{channel_id}/game", a.handleGameStatus).Methods("GET")
	a.router.HandleFunc("/api/public/leaderboard", a.handleLeaderboard).Methods("GET")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/user/balance", a.handleUserBalance).Methods("GET")
	protected.HandleFunc("/user/transactions", a.handleUserTransactions).Methods("GET")
}

func (a *API) Start() error {
	// Read-only public surface; credentials stay disabled while the origin
	// list is a wildcard
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}

	handler := cors.New(corsOptions).Handler(a.router)

	a.log.Infow("API server listening", "bind", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, handler)
}
