package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var ErrNotEnoughClues = errors.New("not enough clues in the archive")

// starterClues is a small archive so a fresh install can host a game before
// anyone imports a real clue set. {category, value, clue, answer, final}.
var starterClues = [][]interface{}{
	{"Science", 200, "This force keeps planets in orbit around the Sun", "gravity", false},
	{"Science", 400, "The chemical symbol Fe stands for this metal", "iron", false},
	{"Science", 600, "This organ pumps roughly 2,000 gallons of blood a day", "heart", false},
	{"Science", 800, "Water reaches its boiling point at 100 degrees on this scale", "celsius", false},
	{"World Capitals", 200, "This city on the Seine is the capital of France", "paris", false},
	{"World Capitals", 400, "Canberra, not Sydney, is the capital of this country", "australia", false},
	{"World Capitals", 600, "This South American capital sits at 2,850m above sea level", "quito", false},
	{"World Capitals", 800, "Ottawa is the capital of this country", "canada", false},
	{"Literature", 200, "Herman Melville's captain obsessed with a white whale", "ahab", false},
	{"Literature", 400, "This author wrote 'Pride and Prejudice'", "jane austen", false},
	{"Literature", 600, "The pen name of Samuel Clemens", "mark twain", false},
	{"Literature", 800, "George Orwell's farm where all animals are equal", "animal farm", false},
	{"Music", 200, "This composer wrote nine symphonies and went deaf", "beethoven", false},
	{"Music", 400, "The number of strings on a standard violin", "four", false},
	{"Music", 600, "Liverpool band of John, Paul, George and Ringo", "beatles", false},
	{"Music", 800, "This Italian term means to play gradually louder", "crescendo", false},
	{"History", 200, "Year the Berlin Wall fell", "1989", false},
	{"History", 400, "The ship that carried the Pilgrims to America in 1620", "mayflower", false},
	{"History", 600, "This empire was ruled from Constantinople", "byzantine", false},
	{"History", 800, "The first man to walk on the Moon", "neil armstrong", false},
	{"Geography", 0, "The longest river in South America", "amazon", true},
	{"Astronomy", 0, "The closest star to Earth other than the Sun", "proxima centauri", true},
}

// SeedStarterClues loads the starter archive into an empty clue table.
// A non-empty archive is left alone.
func (db *DB) SeedStarterClues(ctx context.Context) error {
	var count int
	if err := db.pool.QueryRow(ctx, `SELECT count(*) FROM jeopardy_clues`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count clues: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err := db.pool.CopyFrom(ctx,
		pgx.Identifier{"jeopardy_clues"},
		[]string{"category", "value", "clue", "answer", "final"},
		pgx.CopyFromRows(starterClues),
	)
	if err != nil {
		return fmt.Errorf("failed to seed clues: %w", err)
	}
	return nil
}

type ClueRow struct {
	Category string
	Value    int
	Clue     string
	Answer   string
}

// RandomCategories picks n distinct non-final categories from the archive.
func (db *DB) RandomCategories(ctx context.Context, n int) ([]string, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT category FROM jeopardy_clues
		WHERE NOT final
		GROUP BY category
		ORDER BY random()
		LIMIT $1
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(categories) < n {
		return nil, ErrNotEnoughClues
	}
	return categories, nil
}

// CategoryClues returns the priced clues of a category, cheapest first.
func (db *DB) CategoryClues(ctx context.Context, category string) ([]ClueRow, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT category, value, clue, answer FROM jeopardy_clues
		WHERE category = $1 AND NOT final
		ORDER BY value ASC
	`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clues []ClueRow
	for rows.Next() {
		var c ClueRow
		if err := rows.Scan(&c.Category, &c.Value, &c.Clue, &c.Answer); err != nil {
			return nil, err
		}
		clues = append(clues, c)
	}
	return clues, rows.Err()
}

// RandomFinalClue picks one clue flagged as a final round question.
func (db *DB) RandomFinalClue(ctx context.Context) (*ClueRow, error) {
	var c ClueRow
	err := db.pool.QueryRow(ctx, `
		SELECT category, value, clue, answer FROM jeopardy_clues
		WHERE final
		ORDER BY random()
		LIMIT 1
	`).Scan(&c.Category, &c.Value, &c.Clue, &c.Answer)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotEnoughClues
		}
		return nil, fmt.Errorf("failed to load final clue: %w", err)
	}
	return &c, nil
}
