/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package history keeps a ledger of finished matches in SQLite.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DefaultLimit is used by Recent when no positive limit is given.
const DefaultLimit = 20

var ErrClosed = errors.New("history store is closed")

// Result is one finished match.
type Result struct {
	ID         string    `json:"id"`
	Match      string    `json:"match"`
	Winner     string    `json:"winner,omitempty"`
	Players    []string  `json:"players"`
	Turns      int       `json:"turns"`
	FinishedAt time.Time `json:"finished_at"`
}

type Store struct {
	db *sql.DB
}

// Open creates or opens the ledger at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Record stores r, assigning an id and finish time when they are unset.
// It returns the stored result.
func (s *Store) Record(ctx context.Context, r Result) (Result, error) {
	if s == nil || s.db == nil {
		return r, ErrClosed
	}

	if r.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return r, fmt.Errorf("result id: %w", err)
		}
		r.ID = id.String()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	if r.Players == nil {
		r.Players = []string{}
	}

	players, err := json.Marshal(r.Players)
	if err != nil {
		return r, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (id, match_name, winner, players, turns, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Match, r.Winner, string(players), r.Turns, r.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return r, fmt.Errorf("record %s: %w", r.Match, err)
	}

	return r, nil
}

// Recent returns up to limit results, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Result, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, match_name, winner, players, turns, finished_at FROM results ORDER BY finished_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		var (
			r        Result
			players  string
			finished int64
		)
		if err := rows.Scan(&r.ID, &r.Match, &r.Winner, &players, &r.Turns, &finished); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(players), &r.Players); err != nil {
			return nil, fmt.Errorf("result %s: players: %w", r.ID, err)
		}
		r.FinishedAt = time.UnixMilli(finished)
		out = append(out, r)
	}

	return out, rows.Err()
}
