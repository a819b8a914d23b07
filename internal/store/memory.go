package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory keeps everything in process. It backs the API when no DATABASE_URL is set, and tests.
type Memory struct {
	mu     sync.Mutex
	games  map[string]GameRecord
	idem   map[string]string
	scores map[string]Score
}

func NewMemory() *Memory {
	return &Memory{
		games:  map[string]GameRecord{},
		idem:   map[string]string{},
		scores: map[string]Score{},
	}
}

func (m *Memory) CreateGame(_ context.Context, rec GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[rec.ID]; ok {
		return ErrVersionConflict
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Version = 1
	rec.Status = statusOrActive(rec.Status)
	rec.Blob = append([]byte(nil), rec.Blob...)
	m.games[rec.ID] = rec
	return nil
}

func (m *Memory) LoadGame(_ context.Context, id string) (GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.games[id]
	if !ok {
		return GameRecord{}, ErrNotFound
	}
	rec.Blob = append([]byte(nil), rec.Blob...)
	return rec, nil
}

func (m *Memory) SaveGame(_ context.Context, rec GameRecord, expectedVersion int64, idemKey, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.games[rec.ID]
	if !ok {
		return ErrNotFound
	}
	if idemKey != "" {
		if _, dup := m.idem[rec.ID+"/"+idemKey]; dup {
			return ErrDuplicateIdempotency
		}
	}
	if cur.Version != expectedVersion {
		return ErrVersionConflict
	}
	if idemKey != "" {
		m.idem[rec.ID+"/"+idemKey] = action
	}
	cur.Blob = append([]byte(nil), rec.Blob...)
	cur.Status = statusOrActive(rec.Status)
	cur.PlayerName = rec.PlayerName
	cur.Version++
	cur.UpdatedAt = time.Now().UTC()
	m.games[rec.ID] = cur
	return nil
}

func (m *Memory) SubmitScore(_ context.Context, score Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scores[score.GameID]; ok {
		return ErrScoreExists
	}
	if score.SubmittedAt.IsZero() {
		score.SubmittedAt = time.Now().UTC()
	}
	m.scores[score.GameID] = score
	return nil
}

func (m *Memory) Leaderboard(_ context.Context, limit int) ([]Score, error) {
	m.mu.Lock()
	out := make([]Score, 0, len(m.scores))
	for _, s := range m.scores {
		out = append(out, s)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].NetWorth != out[j].NetWorth {
			return out[i].NetWorth > out[j].NetWorth
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) PruneStale(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, rec := range m.games {
		if rec.Status == StatusActive && rec.UpdatedAt.Before(before) {
			delete(m.games, id)
			for key := range m.idem {
				if len(key) > len(id) && key[:len(id)+1] == id+"/" {
					delete(m.idem, key)
				}
			}
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error { return nil }
