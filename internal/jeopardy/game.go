package jeopardy

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMissLimit = 6
	settleReason     = "Jeopardy Winnings"
)

// Timings holds the pacing of a game. Tests shrink these to milliseconds.
type Timings struct {
	Lobby       time.Duration // intro delay before the first board
	Selection   time.Duration // wait for a category pick
	Answer      time.Duration // open-for-answers window
	VoteDelay   time.Duration // votes disabled at the start of each clue
	InterClue   time.Duration // pause between clues
	Beat        time.Duration // pacing pause around announcements
	RevealDelay time.Duration // short pause before reveals
	FinalWager  time.Duration // per-attempt wager wait in the final round
	FinalAnswer time.Duration // per-participant final answer window
}

func DefaultTimings() Timings {
	return Timings{
		Lobby:       5 * time.Second,
		Selection:   time.Minute,
		Answer:      35 * time.Second,
		VoteDelay:   12 * time.Second,
		InterClue:   7 * time.Second,
		Beat:        5 * time.Second,
		RevealDelay: 3 * time.Second,
		FinalWager:  35 * time.Second,
		FinalAnswer: 35 * time.Second,
	}
}

type AnswerResult int

const (
	// AnswerIgnored means the message never reached arbitration (not in
	// question form).
	AnswerIgnored AnswerResult = iota
	AnswerIncorrect
	AnswerAccepted
	AnswerTooLate
)

type VoteResult int

const (
	VoteOK VoteResult = iota
	VoteTooEarly
	VoteNotEligible
	VoteAlreadyVoted
)

// resolution records how the current clue was closed. Set exactly once per
// clue, under the game mutex, by whichever path closes it first.
type resolution int

const (
	resNone resolution = iota
	resAnswered
	resSkipped
	resTimeout
)

// Answers must be phrased as a question.
var interrogative = regexp.MustCompile(`(?i)^(what|where|who)`)

// A category pick looks like "science for 400"; the three digit run keeps
// casual chat from being mistaken for a selection.
var selectionPattern = regexp.MustCompile(`\d{3,}`)

type GameConfig struct {
	ChannelID    string
	GuildID      string
	Board        *Board
	FinalClue    *Clue
	Messenger    Messenger
	Router       *Router
	Ledger       Ledger
	Log          *zap.SugaredLogger
	Timings      Timings
	CurrencyIcon string
	MissLimit    int
}

// Game runs one Jeopardy round in one channel. A single coordinating
// goroutine executes Run; listener goroutines funnel concurrent guesses and
// votes through the game mutex.
type Game struct {
	ChannelID string
	GuildID   string

	board     *Board
	finalClue *Clue
	msgr      Messenger
	router    *Router
	ledger    Ledger
	log       *zap.SugaredLogger
	t         Timings
	icon      string
	missLimit int

	mu        sync.Mutex
	scores    map[string]int
	names     map[string]string
	current   *Clue
	open      bool
	res       resolution
	winner    string
	misses    int
	canVote   bool
	votes     map[string]struct{}
	stopping  bool
	remaining int

	answered chan struct{}
	skipped  chan struct{}

	settleOnce sync.Once
	done       chan struct{}
}

func NewGame(cfg GameConfig) *Game {
	t := cfg.Timings
	if t == (Timings{}) {
		t = DefaultTimings()
	}
	missLimit := cfg.MissLimit
	if missLimit <= 0 {
		missLimit = defaultMissLimit
	}

	remaining := 0
	for _, cat := range cfg.Board.Categories {
		remaining += len(cat.Clues)
	}

	return &Game{
		ChannelID: cfg.ChannelID,
		GuildID:   cfg.GuildID,
		board:     cfg.Board,
		finalClue: cfg.FinalClue,
		msgr:      cfg.Messenger,
		router:    cfg.Router,
		ledger:    cfg.Ledger,
		log:       cfg.Log,
		t:         t,
		icon:      cfg.CurrencyIcon,
		missLimit: missLimit,
		scores:    make(map[string]int),
		names:     make(map[string]string),
		votes:     make(map[string]struct{}),
		remaining: remaining,
		done:      make(chan struct{}),
	}
}

// Done is closed when the round loop has exited and scores are settled.
func (g *Game) Done() <-chan struct{} {
	return g.done
}

// Run drives the whole round: lobby, clue loop, leaderboard, final round,
// settlement. It blocks until the game is over.
func (g *Game) Run(ctx context.Context) {
	defer close(g.done)
	defer g.settle(context.Background())

	g.send("**Jeopardy!**\nWelcome to Jeopardy!\nGame is starting soon...\n*Responses must be in question form.*")
	time.Sleep(g.t.Lobby)

	for {
		clue, ok := g.selectClue()
		if !ok {
			g.send("No response received, stopping the Jeopardy! game.")
			return
		}
		g.playClue(clue)

		g.mu.Lock()
		stopping := g.stopping
		g.mu.Unlock()
		if stopping || !g.board.HasAvailableClues() {
			break
		}
		time.Sleep(g.t.InterClue)
	}

	time.Sleep(g.t.Beat)

	g.mu.Lock()
	stopping := g.stopping
	players := len(g.scores)
	g.mu.Unlock()

	if players == 0 {
		g.send("No one is on the leaderboard.")
		return
	}

	g.send("**Current Winnings**\n" + g.Leaderboard())
	if stopping {
		return
	}

	time.Sleep(g.t.Beat)
	g.runFinalRound()
}

// RequestStop lets the round finish the current clue and then end, without a
// final round. Idempotent; only the first call is announced.
func (g *Game) RequestStop() {
	g.mu.Lock()
	old := g.stopping
	g.stopping = true
	g.mu.Unlock()

	if !old {
		g.send("Jeopardy! game stopping after this question.")
	}
}

// Terminate is the shutdown path: stop the loop and settle whatever scores
// exist right now.
func (g *Game) Terminate(ctx context.Context) {
	g.mu.Lock()
	g.stopping = true
	g.mu.Unlock()
	g.settle(ctx)
}

func (g *Game) selectClue() (*Clue, bool) {
	g.showBoard()
	for {
		msg := g.router.Await(g.ChannelID, isSelection, g.t.Selection)
		if msg == nil {
			return nil, false
		}

		clue, err := g.board.SelectClue(msg.Content)
		switch err {
		case nil:
			g.mu.Lock()
			g.remaining--
			g.mu.Unlock()
			return clue, true
		case ErrAlreadyTaken:
			g.send("That clue is not available.\nPlease try again.")
		case ErrWrongAmount:
			g.send("There are no clues available for that amount.\nPlease try again.")
		default:
			g.send("No such category found.\nPlease try again.")
		}
	}
}

func isSelection(content string) bool {
	return strings.Contains(normalize(content), "for") && selectionPattern.MatchString(content)
}

func (g *Game) showBoard() {
	var b strings.Builder
	fmt.Fprintf(&b, "**Jeopardy!**\nPlease choose an available category and price from below.\ni.e. `%s for 200`\n", g.board.Categories[0].Name)
	for _, cat := range g.board.Categories {
		b.WriteString("\n**" + cat.Name + "**: ")
		for i, clue := range cat.Clues {
			if i > 0 {
				b.WriteString(" ")
			}
			if clue.Available {
				fmt.Fprintf(&b, "`$%d`", clue.Value)
			} else {
				fmt.Fprintf(&b, "~~`$%d`~~", clue.Value)
			}
		}
	}
	g.send(b.String())
}

// playClue runs one clue from reveal to resolution.
func (g *Game) playClue(clue *Clue) {
	g.mu.Lock()
	g.current = clue
	g.open = true
	g.res = resNone
	g.winner = ""
	g.misses = 0
	g.canVote = false
	g.votes = make(map[string]struct{})
	g.answered = make(chan struct{}, 1)
	g.skipped = make(chan struct{}, 1)
	answered, skipped := g.answered, g.skipped
	g.mu.Unlock()

	cancel := g.router.Listen(func(m Message) { g.handleGuess(clue, m) })
	defer cancel()

	voteTimer := time.AfterFunc(g.t.VoteDelay, func() {
		g.mu.Lock()
		if g.current == clue && g.open {
			g.canVote = true
		}
		g.mu.Unlock()
	})
	defer voteTimer.Stop()

	g.send(clueText(clue))

	timer := time.NewTimer(g.t.Answer)
	defer timer.Stop()

	select {
	case <-answered:
	case <-skipped:
	case <-timer.C:
	}

	g.mu.Lock()
	if g.res == resNone {
		g.res = resTimeout
	}
	res := g.res
	g.open = false
	g.canVote = false
	g.current = nil
	g.mu.Unlock()

	switch res {
	case resSkipped:
		g.send(fmt.Sprintf("**%s - $%d**\nVote skip passed.\nThe correct answer was:\n`%s`", clue.Category, clue.Value, clue.Answer))
	case resTimeout:
		g.send(fmt.Sprintf("**Times Up!**\nThe correct answer was:\n`%s`", clue.Answer))
	}
}

func clueText(clue *Clue) string {
	return fmt.Sprintf("**%s - $%d**\n%s", clue.Category, clue.Value, clue.Prompt)
}

// handleGuess runs on a listener goroutine per inbound message while a clue
// is open.
func (g *Game) handleGuess(clue *Clue, m Message) {
	if m.Bot || m.ChannelID != g.ChannelID {
		return
	}

	res, redisplay := g.TryAnswer(m.AuthorID, m.AuthorName, m.Content)
	switch {
	case res == AnswerAccepted:
		g.mu.Lock()
		total := g.scores[m.AuthorID]
		g.mu.Unlock()
		g.send(fmt.Sprintf("**%s - $%d**\n%s Correct.\nThe correct answer was:\n`%s`\nYour total score is: `%d` %s",
			clue.Category, clue.Value, m.AuthorName, clue.Answer, total, g.icon))
	case redisplay:
		g.send(clueText(clue))
	}
}

// TryAnswer arbitrates one submission against the current clue. Matching
// happens outside the lock; only the check-and-mutate is serialized, so the
// first correct submission to take the lock wins no matter how many race in.
func (g *Game) TryAnswer(userID, name, content string) (AnswerResult, bool) {
	if !interrogative.MatchString(strings.TrimSpace(content)) {
		return AnswerIgnored, false
	}

	g.mu.Lock()
	clue := g.current
	open := g.open
	g.mu.Unlock()
	if !open || clue == nil {
		return AnswerTooLate, false
	}

	correct := clue.CheckAnswer(content)

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open || g.current != clue {
		return AnswerTooLate, false
	}

	if correct {
		g.scores[userID] += clue.Value
		g.names[userID] = name
		g.winner = userID
		g.res = resAnswered
		g.open = false
		select {
		case g.answered <- struct{}{}:
		default:
		}
		return AnswerAccepted, false
	}

	g.misses++
	if g.misses >= g.missLimit {
		g.misses = 0
		return AnswerIncorrect, true
	}
	return AnswerIncorrect, false
}

// VoteSkip casts a skip vote. Quorum is every currently scored participant;
// reaching it resolves the clue like a timeout, with its own announcement.
func (g *Game) VoteSkip(userID string) VoteResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.open || !g.canVote {
		return VoteTooEarly
	}
	if _, ok := g.scores[userID]; !ok {
		return VoteNotEligible
	}
	if _, ok := g.votes[userID]; ok {
		return VoteAlreadyVoted
	}
	g.votes[userID] = struct{}{}

	if len(g.scores) > 0 && len(g.votes) >= len(g.scores) {
		g.votes = make(map[string]struct{})
		g.res = resSkipped
		g.open = false
		select {
		case g.skipped <- struct{}{}:
		default:
		}
	}
	return VoteOK
}

// Leaderboard renders the score table, highest first.
func (g *Game) Leaderboard() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.scores) == 0 {
		return "No one is on the leaderboard."
	}

	ids := make([]string, 0, len(g.scores))
	for id := range g.scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if g.scores[ids[i]] != g.scores[ids[j]] {
			return g.scores[ids[i]] > g.scores[ids[j]]
		}
		return ids[i] < ids[j]
	})

	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%s `%d` %s\n", g.names[id], g.scores[id], g.icon)
	}
	return b.String()
}

// settle hands the score table to the ledger, once per game, one call per
// participant. Failures are logged, not retried.
func (g *Game) settle(ctx context.Context) {
	g.settleOnce.Do(func() {
		g.mu.Lock()
		scores := make(map[string]int, len(g.scores))
		for id, amount := range g.scores {
			scores[id] = amount
		}
		g.mu.Unlock()

		for id, amount := range scores {
			if err := g.ledger.Settle(ctx, id, settleReason, int64(amount), g.GuildID, g.ChannelID); err != nil {
				g.log.Warnw("settlement failed", "user", id, "amount", amount, "error", err)
			}
		}
	})
}

func (g *Game) send(content string) {
	g.sendTo(g.ChannelID, content)
}

func (g *Game) sendTo(channelID, content string) {
	if _, err := g.msgr.Send(channelID, content); err != nil {
		g.log.Warnw("failed to send message", "channel", channelID, "error", err)
	}
}

func trimTo(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
