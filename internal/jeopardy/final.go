package jeopardy

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var anyDigit = regexp.MustCompile(`\d`)

type finalist struct {
	userID string
	name   string
	score  int
}

// finalEntry is one participant's private sub-session. Mutated under the
// game mutex once the answer windows are open.
type finalEntry struct {
	userID  string
	name    string
	dm      string
	wager   int
	answer  string
	correct bool
}

// runFinalRound fans out a private wager sub-session per scoring participant,
// joins them at a barrier, reveals the final clue everywhere at once, then
// fans out the answer windows and tabulates the results.
func (g *Game) runFinalRound() {
	g.mu.Lock()
	var finalists []finalist
	for id, score := range g.scores {
		if score > 0 {
			finalists = append(finalists, finalist{userID: id, name: g.names[id], score: score})
		}
	}
	g.mu.Unlock()

	if len(finalists) == 0 || g.finalClue == nil {
		return
	}

	g.send("**Final Jeopardy!**\nPlease go to your DMs to play the Final Jeopardy!\n*You must have a score to participate.*")

	// Wager fan-out. Each participant runs on their own clock; the wait is
	// the barrier before anything is revealed.
	var (
		entryMu sync.Mutex
		entries []*finalEntry
		wg      sync.WaitGroup
	)
	for _, f := range finalists {
		f := f
		wg.Add(1)
		go func() {
			defer wg.Done()
			if e := g.collectWager(f); e != nil {
				entryMu.Lock()
				entries = append(entries, e)
				entryMu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(entries) == 0 {
		g.send("**Final Jeopardy!**\nNo wagers.")
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	time.Sleep(g.t.Beat)

	// Shared reveal; each participant's window repeats it in their DM the
	// moment it opens.
	reveal := fmt.Sprintf("**Final Jeopardy!**\n**%s**\n%s", g.finalClue.Category, g.finalClue.Prompt)
	g.send(reveal + "\n*Note: your answers will not be checked here.*")

	// Answer fan-out. A correct answer closes that participant's window
	// only; siblings keep their own clocks.
	var eg errgroup.Group
	for _, e := range entries {
		e := e
		eg.Go(func() error {
			g.finalAnswerWindow(e)
			return nil
		})
	}
	_ = eg.Wait()

	g.send(fmt.Sprintf("**Final Jeopardy!**\nThe correct answer is:\n`%s`", g.finalClue.Answer))
	time.Sleep(g.t.RevealDelay)

	g.mu.Lock()
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s: `$%d` - %s\n", e.name, e.wager, e.answer)
	}
	g.mu.Unlock()
	g.send("**Final Jeopardy! Results**\n" + b.String())
}

// collectWager opens the participant's DM and keeps prompting until a wager
// in [0, score] arrives. A timeout drops the participant from the final
// round; nil means dropped.
func (g *Game) collectWager(f finalist) *finalEntry {
	dm, err := g.msgr.OpenPrivateChannel(f.userID)
	if err != nil {
		g.log.Warnw("failed to open DM for final round", "user", f.userID, "error", err)
		return nil
	}

	g.sendTo(dm, fmt.Sprintf("**Final Jeopardy!**\nPlease make your wager. Your current score is: `$%d`", f.score))

	for {
		msg := g.router.Await(dm, anyDigit.MatchString, g.t.FinalWager)
		if msg == nil {
			g.sendTo(dm, "No response received. You are removed from the Final Jeopardy!")
			return nil
		}

		wager, err := parseAmount(msg.Content)
		if err != nil || wager > f.score {
			g.sendTo(dm, fmt.Sprintf("You cannot wager more than your score.\nThe maximum you can wager is: `$%d`", f.score))
			continue
		}

		g.mu.Lock()
		g.scores[f.userID] -= wager
		g.mu.Unlock()

		g.sendTo(dm, fmt.Sprintf("You successfully wagered `$%d`.\nPlease wait until all other participants have submitted their wager.", wager))
		return &finalEntry{userID: f.userID, name: f.name, dm: dm, wager: wager, answer: "No Answer"}
	}
}

// finalAnswerWindow holds the participant's DM open for one answer window.
// The first message in question form containing the accepted answer scores
// 2x the wager and ends the window early; anything else just becomes the
// recorded answer for the results list.
func (g *Game) finalAnswerWindow(e *finalEntry) {
	done := make(chan struct{})
	var once sync.Once
	final := g.finalClue

	reveal := fmt.Sprintf("**Final Jeopardy!**\n**%s**\n%s", final.Category, final.Prompt)

	cancel := g.router.Listen(func(m Message) {
		if m.Bot || m.ChannelID != e.dm {
			return
		}
		if !interrogative.MatchString(strings.TrimSpace(m.Content)) {
			return
		}

		g.mu.Lock()
		if e.correct {
			g.mu.Unlock()
			return
		}
		if final.CheckAnswer(m.Content) {
			e.correct = true
			e.answer = trimTo(m.Content, 100)
			g.scores[e.userID] += e.wager * 2
			total := g.scores[e.userID]
			g.mu.Unlock()
			once.Do(func() { close(done) })
			g.sendTo(e.dm, fmt.Sprintf("**Final Jeopardy!**\n%s Correct.\nThe correct answer was:\n`%s`\nYour total score is: `%d` %s",
				e.name, final.Answer, total, g.icon))
			return
		}
		e.answer = trimTo(m.Content, 100)
		g.mu.Unlock()
	})
	defer cancel()

	g.sendTo(e.dm, fmt.Sprintf("%s\n*Your wager is $%d. Submit your answer now.*", reveal, e.wager))

	select {
	case <-done:
	case <-time.After(g.t.FinalAnswer):
	}

	g.sendTo(e.dm, "Please return to the main channel for the final results.")
}

// parseAmount reads a wager the forgiving way: every digit in the message,
// concatenated. "1,000" wagers 1000.
func parseAmount(content string) (int, error) {
	var b strings.Builder
	for _, r := range content {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return strconv.Atoi(b.String())
}
