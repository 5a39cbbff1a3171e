package jeopardy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type sentMessage struct {
	channelID string
	content   string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeMessenger) Send(channelID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channelID: channelID, content: content})
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

func (f *fakeMessenger) OpenPrivateChannel(userID string) (string, error) {
	return "dm-" + userID, nil
}

func (f *fakeMessenger) contains(channelID, substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.sent {
		if m.channelID == channelID && strings.Contains(m.content, substr) {
			return true
		}
	}
	return false
}

type fakeLedger struct {
	mu      sync.Mutex
	settled map[string]int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{settled: make(map[string]int64)}
}

func (f *fakeLedger) Settle(ctx context.Context, userID, reason string, amount int64, contextIDs ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled[userID] += amount
	return nil
}

func (f *fakeLedger) calls() map[string]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64, len(f.settled))
	for k, v := range f.settled {
		out[k] = v
	}
	return out
}

func fastTimings() Timings {
	return Timings{
		Lobby:       time.Millisecond,
		Selection:   500 * time.Millisecond,
		Answer:      250 * time.Millisecond,
		VoteDelay:   50 * time.Millisecond,
		InterClue:   time.Millisecond,
		Beat:        time.Millisecond,
		RevealDelay: time.Millisecond,
		FinalWager:  400 * time.Millisecond,
		FinalAnswer: 250 * time.Millisecond,
	}
}

func newTestGame(board *Board, final *Clue) (*Game, *fakeMessenger, *fakeLedger, *Router) {
	msgr := &fakeMessenger{}
	ldg := newFakeLedger()
	router := NewRouter(zap.NewNop().Sugar())
	g := NewGame(GameConfig{
		ChannelID:    "chan",
		GuildID:      "guild",
		Board:        board,
		FinalClue:    final,
		Messenger:    msgr,
		Router:       router,
		Ledger:       ldg,
		Log:          zap.NewNop().Sugar(),
		Timings:      fastTimings(),
		CurrencyIcon: "🪙",
	})
	return g, msgr, ldg, router
}

// openClue puts the game mid-clue without running the full loop.
func openClue(g *Game, clue *Clue) {
	g.mu.Lock()
	g.current = clue
	g.open = true
	g.res = resNone
	g.misses = 0
	g.votes = make(map[string]struct{})
	g.answered = make(chan struct{}, 1)
	g.skipped = make(chan struct{}, 1)
	g.mu.Unlock()
}

func TestTryAnswerFirstCorrectWins(t *testing.T) {
	g, _, _, _ := newTestGame(testBoard(), nil)
	clue := &Clue{Category: "Science", Value: 200, Answer: "gravity"}
	openClue(g, clue)

	const n = 20
	results := make(chan AnswerResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i)
			res, _ := g.TryAnswer(user, user, "what is gravity")
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for res := range results {
		switch res {
		case AnswerAccepted:
			accepted++
		case AnswerTooLate:
		default:
			t.Errorf("unexpected result %v", res)
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted = %d, want exactly 1", accepted)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, s := range g.scores {
		total += s
	}
	if total != 200 {
		t.Errorf("total score = %d, want 200", total)
	}
	if g.open {
		t.Error("clue should be closed after an accepted answer")
	}
}

func TestTryAnswerPrefilter(t *testing.T) {
	g, _, _, _ := newTestGame(testBoard(), nil)
	clue := &Clue{Category: "Science", Value: 200, Answer: "gravity"}
	openClue(g, clue)

	if res, _ := g.TryAnswer("u1", "u1", "gravity"); res != AnswerIgnored {
		t.Errorf("answer without question form = %v, want AnswerIgnored", res)
	}
	if res, _ := g.TryAnswer("u1", "u1", "What is gravity"); res != AnswerAccepted {
		t.Errorf("question-form answer = %v, want AnswerAccepted", res)
	}
}

func TestTryAnswerClosedClue(t *testing.T) {
	g, _, _, _ := newTestGame(testBoard(), nil)
	if res, _ := g.TryAnswer("u1", "u1", "what is gravity"); res != AnswerTooLate {
		t.Errorf("answer with no open clue = %v, want AnswerTooLate", res)
	}
}

func TestTryAnswerMissStreakRedisplays(t *testing.T) {
	g, _, _, _ := newTestGame(testBoard(), nil)
	clue := &Clue{Category: "Science", Value: 200, Answer: "gravity"}
	openClue(g, clue)

	for i := 0; i < defaultMissLimit-1; i++ {
		res, redisplay := g.TryAnswer("u1", "u1", "what is cheese")
		if res != AnswerIncorrect || redisplay {
			t.Fatalf("miss %d: res=%v redisplay=%v", i+1, res, redisplay)
		}
	}
	res, redisplay := g.TryAnswer("u1", "u1", "what is cheese")
	if res != AnswerIncorrect || !redisplay {
		t.Fatalf("final miss: res=%v redisplay=%v, want Incorrect with redisplay", res, redisplay)
	}
	// Streak resets after a redisplay.
	if _, redisplay := g.TryAnswer("u1", "u1", "what is cheese"); redisplay {
		t.Error("streak did not reset after redisplay")
	}
}

func TestVoteSkipQuorum(t *testing.T) {
	g, _, _, _ := newTestGame(testBoard(), nil)
	clue := &Clue{Category: "Science", Value: 200, Answer: "gravity"}
	openClue(g, clue)

	g.mu.Lock()
	g.scores["a"] = 200
	g.scores["b"] = 400
	g.scores["c"] = 600
	g.mu.Unlock()

	// Votes are disabled until the delay elapses.
	if res := g.VoteSkip("a"); res != VoteTooEarly {
		t.Fatalf("early vote = %v, want VoteTooEarly", res)
	}

	g.mu.Lock()
	g.canVote = true
	g.mu.Unlock()

	if res := g.VoteSkip("stranger"); res != VoteNotEligible {
		t.Errorf("non-participant vote = %v, want VoteNotEligible", res)
	}
	if res := g.VoteSkip("a"); res != VoteOK {
		t.Errorf("first vote = %v, want VoteOK", res)
	}
	if res := g.VoteSkip("a"); res != VoteAlreadyVoted {
		t.Errorf("duplicate vote = %v, want VoteAlreadyVoted", res)
	}
	if res := g.VoteSkip("b"); res != VoteOK {
		t.Errorf("second vote = %v, want VoteOK", res)
	}

	g.mu.Lock()
	if !g.open {
		t.Error("clue closed before quorum")
	}
	g.mu.Unlock()

	if res := g.VoteSkip("c"); res != VoteOK {
		t.Errorf("quorum vote = %v, want VoteOK", res)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		t.Error("clue should be closed after quorum")
	}
	if g.res != resSkipped {
		t.Errorf("resolution = %v, want resSkipped", g.res)
	}
	if len(g.votes) != 0 {
		t.Error("vote set should be cleared after a skip")
	}
}

func TestRunFullClueAndSettlement(t *testing.T) {
	board := NewBoard([]Category{{
		Name: "Science",
		Clues: []*Clue{
			{Category: "Science", Value: 200, Prompt: "It keeps you down", Answer: "gravity", Available: true},
		},
	}})
	g, msgr, ldg, router := newTestGame(board, nil)

	go g.Run(context.Background())

	waitFor(t, func() bool { return msgr.contains("chan", "choose an available category") })
	router.Dispatch(Message{ChannelID: "chan", AuthorID: "a1", AuthorName: "Alice", Content: "science for 200"})

	waitFor(t, func() bool { return msgr.contains("chan", "It keeps you down") })
	router.Dispatch(Message{ChannelID: "chan", AuthorID: "a1", AuthorName: "Alice", Content: "what is gravity"})

	select {
	case <-g.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("game did not finish")
	}

	if !msgr.contains("chan", "Alice Correct.") {
		t.Error("missing correct-answer announcement")
	}
	if !msgr.contains("chan", "Current Winnings") {
		t.Error("missing leaderboard announcement")
	}
	if got := ldg.calls(); got["a1"] != 200 {
		t.Errorf("settled = %v, want a1 -> 200", got)
	}
}

func TestRunSelectionTimeoutAbortsSession(t *testing.T) {
	g, msgr, ldg, _ := newTestGame(testBoard(), nil)

	go g.Run(context.Background())
	select {
	case <-g.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("game did not abort")
	}

	if !msgr.contains("chan", "No response received") {
		t.Error("missing abort announcement")
	}
	if len(ldg.calls()) != 0 {
		t.Error("no one should be settled when no one played")
	}
}

func TestRunNoScorersSkipsFinalRound(t *testing.T) {
	board := NewBoard([]Category{{
		Name: "Science",
		Clues: []*Clue{
			{Category: "Science", Value: 200, Prompt: "It keeps you down", Answer: "gravity", Available: true},
		},
	}})
	final := &Clue{Category: "Space", Prompt: "The red planet", Answer: "mars"}
	g, msgr, ldg, router := newTestGame(board, final)

	go g.Run(context.Background())

	waitFor(t, func() bool { return msgr.contains("chan", "choose an available category") })
	router.Dispatch(Message{ChannelID: "chan", AuthorID: "a1", AuthorName: "Alice", Content: "science for 200"})

	// Nobody answers; the clue times out and the board is exhausted.
	select {
	case <-g.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("game did not finish")
	}

	if !msgr.contains("chan", "Times Up!") {
		t.Error("missing timeout reveal")
	}
	if !msgr.contains("chan", "No one is on the leaderboard.") {
		t.Error("missing empty leaderboard message")
	}
	if msgr.contains("chan", "Final Jeopardy!") {
		t.Error("final round should not run without scorers")
	}
	if len(ldg.calls()) != 0 {
		t.Errorf("settled = %v, want none", ldg.calls())
	}
}

func TestRequestStopAnnouncesOnce(t *testing.T) {
	g, msgr, _, _ := newTestGame(testBoard(), nil)

	g.RequestStop()
	g.RequestStop()

	msgr.mu.Lock()
	defer msgr.mu.Unlock()
	count := 0
	for _, m := range msgr.sent {
		if strings.Contains(m.content, "stopping after this question") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("stop announced %d times, want 1", count)
	}
}

func TestSettleOnlyOnce(t *testing.T) {
	g, _, ldg, _ := newTestGame(testBoard(), nil)
	g.mu.Lock()
	g.scores["a1"] = 500
	g.mu.Unlock()

	g.settle(context.Background())
	g.settle(context.Background())

	if got := ldg.calls(); got["a1"] != 500 {
		t.Errorf("settled = %v, want a1 -> 500 exactly once", got)
	}
}
