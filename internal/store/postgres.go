package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema_postgres.sql
var postgresSchema string

type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres wraps an open pool. Close closes the pool.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) CreateGame(ctx context.Context, rec GameRecord) error {
	blob, err := compress(rec.Blob)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO tycoon.games (id, player_name, status, version, blob)
		VALUES ($1, $2, $3, 1, $4)
	`, rec.ID, rec.PlayerName, statusOrActive(rec.Status), blob)
	if isUniqueViolation(err) {
		return ErrVersionConflict
	}
	return err
}

func (p *Postgres) LoadGame(ctx context.Context, id string) (GameRecord, error) {
	var rec GameRecord
	var blob []byte
	err := p.db.QueryRow(ctx, `
		SELECT id, player_name, status, version, blob, created_at, updated_at
		FROM tycoon.games
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.PlayerName, &rec.Status, &rec.Version, &blob, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rec, ErrNotFound
		}
		return rec, err
	}
	if rec.Blob, err = decompress(blob); err != nil {
		return rec, err
	}
	return rec, nil
}

func (p *Postgres) SaveGame(ctx context.Context, rec GameRecord, expectedVersion int64, idemKey, action string) error {
	blob, err := compress(rec.Blob)
	if err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := claimIdempotency(ctx, tx, rec.ID, idemKey, action); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `
		UPDATE tycoon.games
		SET blob = $1, status = $2, player_name = $3, version = version + 1, updated_at = now()
		WHERE id = $4 AND version = $5
	`, blob, statusOrActive(rec.Status), rec.PlayerName, rec.ID, expectedVersion)
	if err != nil {
		return mapTxError(err)
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tycoon.games WHERE id = $1)`, rec.ID).Scan(&exists); err != nil {
			return mapTxError(err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return mapTxError(tx.Commit(ctx))
}

func claimIdempotency(ctx context.Context, tx pgx.Tx, gameID, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO tycoon.idempotency_keys (game_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (game_id, key) DO NOTHING
	`, gameID, key, action)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return mapTxError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

func (p *Postgres) SubmitScore(ctx context.Context, s Score) error {
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	_, err := p.db.Exec(ctx, `
		INSERT INTO tycoon.scores (game_id, player_name, home_base, net_worth, day, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.GameID, s.PlayerName, s.HomeBase, s.NetWorth, s.Day, s.SubmittedAt)
	if isUniqueViolation(err) {
		return ErrScoreExists
	}
	return err
}

func (p *Postgres) Leaderboard(ctx context.Context, limit int) ([]Score, error) {
	rows, err := p.db.Query(ctx, `
		SELECT game_id, player_name, home_base, net_worth, day, submitted_at
		FROM tycoon.scores
		ORDER BY net_worth DESC, submitted_at ASC
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Score
	for rows.Next() {
		var s Score
		if err := rows.Scan(&s.GameID, &s.PlayerName, &s.HomeBase, &s.NetWorth, &s.Day, &s.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) PruneStale(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := p.db.Exec(ctx, `
		DELETE FROM tycoon.games
		WHERE status = 'active' AND updated_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

func statusOrActive(s string) string {
	if s == "" {
		return StatusActive
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// mapTxError turns serialization failures into ErrVersionConflict so callers retry them.
func mapTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "40001" {
		return ErrVersionConflict
	}
	return err
}
