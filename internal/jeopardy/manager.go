package jeopardy

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrAlreadyInProgress = errors.New("game already in progress in this channel")
	ErrNoActiveGame      = errors.New("no active game in this channel")
)

// BoardSource builds a fresh board plus the final round clue.
type BoardSource interface {
	Board(ctx context.Context) (*Board, *Clue, error)
}

// Manager is the channel-keyed registry of live games: at most one per
// channel, inserted on round start, removed when the round loop exits.
type Manager struct {
	msgr    Messenger
	router  *Router
	ledger  Ledger
	source  BoardSource
	log     *zap.SugaredLogger
	timings Timings
	icon    string

	mu       sync.Mutex
	games    map[string]*Game
	starting map[string]struct{}
}

func NewManager(msgr Messenger, router *Router, ledger Ledger, source BoardSource, log *zap.SugaredLogger, timings Timings, icon string) *Manager {
	return &Manager{
		msgr:     msgr,
		router:   router,
		ledger:   ledger,
		source:   source,
		log:      log,
		timings:  timings,
		icon:     icon,
		games:    make(map[string]*Game),
		starting: make(map[string]struct{}),
	}
}

// Start creates and runs a game in the channel. Fails with
// ErrAlreadyInProgress while one is live (or still loading its board).
func (m *Manager) Start(ctx context.Context, channelID, guildID string) (*Game, error) {
	m.mu.Lock()
	if _, ok := m.games[channelID]; ok {
		m.mu.Unlock()
		return nil, ErrAlreadyInProgress
	}
	if _, ok := m.starting[channelID]; ok {
		m.mu.Unlock()
		return nil, ErrAlreadyInProgress
	}
	m.starting[channelID] = struct{}{}
	m.mu.Unlock()

	board, final, err := m.source.Board(ctx)
	if err != nil {
		m.mu.Lock()
		delete(m.starting, channelID)
		m.mu.Unlock()
		return nil, err
	}

	game := NewGame(GameConfig{
		ChannelID:    channelID,
		GuildID:      guildID,
		Board:        board,
		FinalClue:    final,
		Messenger:    m.msgr,
		Router:       m.router,
		Ledger:       m.ledger,
		Log:          m.log,
		Timings:      m.timings,
		CurrencyIcon: m.icon,
	})

	m.mu.Lock()
	delete(m.starting, channelID)
	m.games[channelID] = game
	m.mu.Unlock()

	go func() {
		game.Run(context.Background())
		m.mu.Lock()
		delete(m.games, channelID)
		m.mu.Unlock()
		m.log.Infow("jeopardy game finished", "channel", channelID)
	}()

	return game, nil
}

// Stop asks the channel's game to end after the current clue.
func (m *Manager) Stop(channelID string) error {
	game, ok := m.game(channelID)
	if !ok {
		return ErrNoActiveGame
	}
	game.RequestStop()
	return nil
}

// Vote casts a skip vote in the channel's game.
func (m *Manager) Vote(channelID, userID string) (VoteResult, error) {
	game, ok := m.game(channelID)
	if !ok {
		return 0, ErrNoActiveGame
	}
	return game.VoteSkip(userID), nil
}

// Leaderboard renders the channel's current score table.
func (m *Manager) Leaderboard(channelID string) (string, error) {
	game, ok := m.game(channelID)
	if !ok {
		return "", ErrNoActiveGame
	}
	return game.Leaderboard(), nil
}

// StopAll force-terminates every live game, settling whatever scores exist.
// Used on shutdown.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	games := make([]*Game, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	m.mu.Unlock()

	for _, g := range games {
		g.Terminate(ctx)
	}
}

func (m *Manager) game(channelID string) (*Game, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[channelID]
	return g, ok
}

type PlayerStatus struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

type CurrentClue struct {
	Category string `json:"category"`
	Value    int    `json:"value"`
}

type Status struct {
	ChannelID      string         `json:"channel_id"`
	GuildID        string         `json:"guild_id"`
	Players        []PlayerStatus `json:"players"`
	CluesRemaining int            `json:"clues_remaining"`
	Current        *CurrentClue   `json:"current_clue,omitempty"`
}

// Status snapshots the channel's game for the web API.
func (m *Manager) Status(channelID string) (*Status, error) {
	game, ok := m.game(channelID)
	if !ok {
		return nil, ErrNoActiveGame
	}
	s := game.status()
	return &s, nil
}

// Active lists snapshots of every live game, ordered by channel id.
func (m *Manager) Active() []Status {
	m.mu.Lock()
	games := make([]*Game, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	m.mu.Unlock()

	statuses := make([]Status, 0, len(games))
	for _, g := range games {
		statuses = append(statuses, g.status())
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ChannelID < statuses[j].ChannelID })
	return statuses
}

func (g *Game) status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Status{
		ChannelID:      g.ChannelID,
		GuildID:        g.GuildID,
		CluesRemaining: g.remaining,
	}
	for id, score := range g.scores {
		s.Players = append(s.Players, PlayerStatus{UserID: id, Name: g.names[id], Score: score})
	}
	sort.Slice(s.Players, func(i, j int) bool {
		if s.Players[i].Score != s.Players[j].Score {
			return s.Players[i].Score > s.Players[j].Score
		}
		return s.Players[i].UserID < s.Players[j].UserID
	})
	if g.current != nil {
		s.Current = &CurrentClue{Category: g.current.Category, Value: g.current.Value}
	}
	return s
}
