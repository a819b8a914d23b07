package announce

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"lukechampine.com/blake3"

	"tycoon/internal/game"
)

type Source interface {
	PruneStale(ctx context.Context, olderThan time.Duration) (int64, error)
	Leaderboard(ctx context.Context, limit int) ([]game.LeaderboardRow, error)
}

// Worker prunes abandoned games and announces the leaderboard whenever it changes.
type Worker struct {
	src        Source
	announcer  Announcer
	log        *slog.Logger
	pruneAfter time.Duration
	top        int
	lastDigest string
}

// NewWorker builds a worker; a nil announcer only prunes.
func NewWorker(src Source, announcer Announcer, logger *slog.Logger, pruneAfter time.Duration, top int) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if top <= 0 {
		top = 10
	}
	return &Worker{src: src, announcer: announcer, log: logger, pruneAfter: pruneAfter, top: top}
}

func (w *Worker) RunOnce(ctx context.Context) error {
	if w.pruneAfter > 0 {
		if _, err := w.src.PruneStale(ctx, w.pruneAfter); err != nil {
			return err
		}
	}
	if w.announcer == nil {
		return nil
	}
	rows, err := w.src.Leaderboard(ctx, w.top)
	if err != nil {
		return err
	}
	digest := leaderboardDigest(rows)
	if digest == w.lastDigest {
		return nil
	}
	if err := w.announcer.Announce(ctx, rows); err != nil {
		return err
	}
	w.lastDigest = digest
	w.log.Info("leaderboard announced", "rows", len(rows))
	return nil
}

// Run ticks until ctx is done. Errors of a single tick are logged and do not stop the loop.
func (w *Worker) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	w.log.Info("worker started", "tick_every", every.String(), "prune_after", w.pruneAfter.String())
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker shutdown")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.log.Error("worker tick failed", "err", err)
				continue
			}
		}
	}
}

func leaderboardDigest(rows []game.LeaderboardRow) string {
	type key struct {
		GameID   string
		NetWorth int64
	}
	keys := make([]key, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, key{GameID: r.GameID, NetWorth: r.NetWorth})
	}
	b, _ := json.Marshal(keys)
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}
