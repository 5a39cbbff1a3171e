package bot

import (
	"context"
	"fmt"

	"github.com/torisu27/jeobot/internal/db"
	"github.com/torisu27/jeobot/internal/jeopardy"
)

const boardCategories = 5

// clueSource builds game boards from the clue archive.
type clueSource struct {
	db *db.DB
}

func (c *clueSource) Board(ctx context.Context) (*jeopardy.Board, *jeopardy.Clue, error) {
	names, err := c.db.RandomCategories(ctx, boardCategories)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pick categories: %w", err)
	}

	categories := make([]jeopardy.Category, 0, len(names))
	for _, name := range names {
		rows, err := c.db.CategoryClues(ctx, name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load clues for %q: %w", name, err)
		}
		cat := jeopardy.Category{Name: name}
		for _, row := range rows {
			cat.Clues = append(cat.Clues, &jeopardy.Clue{
				Category:  row.Category,
				Value:     row.Value,
				Prompt:    row.Clue,
				Answer:    row.Answer,
				Available: true,
			})
		}
		categories = append(categories, cat)
	}

	finalRow, err := c.db.RandomFinalClue(ctx)
	if err != nil {
		return nil, nil, err
	}
	final := &jeopardy.Clue{
		Category: finalRow.Category,
		Value:    finalRow.Value,
		Prompt:   finalRow.Clue,
		Answer:   finalRow.Answer,
	}

	return jeopardy.NewBoard(categories), final, nil
}
