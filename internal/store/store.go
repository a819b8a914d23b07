// Package store persists game saves and submitted scores.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrVersionConflict      = errors.New("version conflict")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrScoreExists          = errors.New("score already exists")
)

const (
	StatusActive   = "active"
	StatusFinished = "finished"
)

// GameRecord is one saved game. Blob is an encoded snapshot; stores may compress it at rest.
type GameRecord struct {
	ID         string
	PlayerName string
	Status     string
	Version    int64
	Blob       []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Score struct {
	GameID      string    `db:"game_id"`
	PlayerName  string    `db:"player_name"`
	HomeBase    string    `db:"home_base"`
	NetWorth    int64     `db:"net_worth"`
	Day         int       `db:"day"`
	SubmittedAt time.Time `db:"submitted_at"`
}

type Store interface {
	CreateGame(ctx context.Context, rec GameRecord) error
	LoadGame(ctx context.Context, id string) (GameRecord, error)
	// SaveGame replaces the blob when the stored version equals expectedVersion and bumps it.
	// A non-empty idemKey is claimed in the same write; replays fail with ErrDuplicateIdempotency.
	SaveGame(ctx context.Context, rec GameRecord, expectedVersion int64, idemKey, action string) error
	SubmitScore(ctx context.Context, score Score) error
	Leaderboard(ctx context.Context, limit int) ([]Score, error)
	// PruneStale deletes active games not updated since before.
	PruneStale(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

const (
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}
