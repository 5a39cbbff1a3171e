package jeopardy

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrWrongCategory = errors.New("no such category found")
	ErrWrongAmount   = errors.New("no clue available for that amount")
	ErrAlreadyTaken  = errors.New("that clue is not available")
)

// Clue is a single priced question. Available flips to false exactly once,
// when the clue is selected.
type Clue struct {
	Category  string
	Value     int
	Prompt    string
	Answer    string
	Available bool
}

// CheckAnswer reports whether the submission contains the accepted answer,
// after both sides are normalized.
func (c *Clue) CheckAnswer(submission string) bool {
	return strings.Contains(normalize(submission), normalize(c.Answer))
}

type Category struct {
	Name  string
	Clues []*Clue
}

// Board holds the categories in display order.
type Board struct {
	Categories []Category
}

func NewBoard(categories []Category) *Board {
	return &Board{Categories: categories}
}

var digitRun = regexp.MustCompile(`\d+`)

// SelectClue resolves "category for value" input against the board. Category
// matching is a case-insensitive substring test against the normalized name;
// the first category in board order wins. The value is the last run of digits
// in the input.
func (b *Board) SelectClue(input string) (*Clue, error) {
	content := normalize(input)
	idx := strings.LastIndex(content, "for")
	if idx < 0 {
		return nil, ErrWrongCategory
	}
	wanted := strings.TrimSpace(content[:idx])

	amount := 0
	if runs := digitRun.FindAllString(content[idx:], -1); len(runs) > 0 {
		amount, _ = strconv.Atoi(runs[len(runs)-1])
	}

	for _, cat := range b.Categories {
		if !strings.Contains(normalize(cat.Name), wanted) {
			continue
		}
		for _, clue := range cat.Clues {
			if clue.Value != amount {
				continue
			}
			if !clue.Available {
				return nil, ErrAlreadyTaken
			}
			clue.Available = false
			return clue, nil
		}
		return nil, ErrWrongAmount
	}
	return nil, ErrWrongCategory
}

// HasAvailableClues reports whether any clue on the board is still open.
func (b *Board) HasAvailableClues() bool {
	for _, cat := range b.Categories {
		for _, clue := range cat.Clues {
			if clue.Available {
				return true
			}
		}
	}
	return false
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalize lowercases, strips accents and drops everything that is not a
// letter, digit or space. Runs of spaces collapse to one.
func normalize(s string) string {
	stripped, _, err := transform.String(accentStripper, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(stripped) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		case unicode.IsSpace(r):
			if !space && b.Len() > 0 {
				b.WriteRune(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
