package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLite is the single-node store. Writes are serialized through one connection.
type SQLite struct {
	conn *sqlx.DB
}

type gameRow struct {
	ID         string    `db:"id"`
	PlayerName string    `db:"player_name"`
	Status     string    `db:"status"`
	Version    int64     `db:"version"`
	Blob       []byte    `db:"blob"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// OpenSQLite opens or creates a database at path (":memory:" works for tests) and migrates it.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &SQLite{conn: conn}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (s *SQLite) CreateGame(ctx context.Context, rec GameRecord) error {
	blob, err := compress(rec.Blob)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	created := rec.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err = s.conn.ExecContext(ctx, `INSERT INTO games
		(id, player_name, status, version, blob, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?, ?)`,
		rec.ID, rec.PlayerName, statusOrActive(rec.Status), blob, created.UTC(), now)
	if isSQLiteUniqueViolation(err) {
		return ErrVersionConflict
	}
	return err
}

func (s *SQLite) LoadGame(ctx context.Context, id string) (GameRecord, error) {
	var row gameRow
	err := s.conn.GetContext(ctx, &row, `SELECT id, player_name, status, version, blob, created_at, updated_at
		FROM games WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GameRecord{}, ErrNotFound
		}
		return GameRecord{}, err
	}
	blob, err := decompress(row.Blob)
	if err != nil {
		return GameRecord{}, err
	}
	return GameRecord{
		ID:         row.ID,
		PlayerName: row.PlayerName,
		Status:     row.Status,
		Version:    row.Version,
		Blob:       blob,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

func (s *SQLite) SaveGame(ctx context.Context, rec GameRecord, expectedVersion int64, idemKey, action string) error {
	blob, err := compress(rec.Blob)
	if err != nil {
		return err
	}
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var version int64
	if err := tx.GetContext(ctx, &version, `SELECT version FROM games WHERE id = ?`, rec.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	now := time.Now().UTC()
	if key := strings.TrimSpace(idemKey); key != "" {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO idempotency_keys (game_id, key, action, created_at)
			VALUES (?, ?, ?, ?)`, rec.ID, key, action, now)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrDuplicateIdempotency
		}
	}
	if version != expectedVersion {
		return ErrVersionConflict
	}
	if _, err := tx.ExecContext(ctx, `UPDATE games
		SET blob = ?, status = ?, player_name = ?, version = version + 1, updated_at = ?
		WHERE id = ?`, blob, statusOrActive(rec.Status), rec.PlayerName, now, rec.ID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) SubmitScore(ctx context.Context, score Score) error {
	if score.SubmittedAt.IsZero() {
		score.SubmittedAt = time.Now().UTC()
	}
	_, err := s.conn.NamedExecContext(ctx, `INSERT INTO scores
		(game_id, player_name, home_base, net_worth, day, submitted_at)
		VALUES (:game_id, :player_name, :home_base, :net_worth, :day, :submitted_at)`, score)
	if isSQLiteUniqueViolation(err) {
		return ErrScoreExists
	}
	return err
}

func (s *SQLite) Leaderboard(ctx context.Context, limit int) ([]Score, error) {
	var out []Score
	err := s.conn.SelectContext(ctx, &out, `SELECT game_id, player_name, home_base, net_worth, day, submitted_at
		FROM scores ORDER BY net_worth DESC, submitted_at ASC LIMIT ?`, clampLimit(limit))
	return out, err
}

func (s *SQLite) PruneStale(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE game_id IN
		(SELECT id FROM games WHERE status = 'active' AND updated_at < ?)`, before.UTC()); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM games WHERE status = 'active' AND updated_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func isSQLiteUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
