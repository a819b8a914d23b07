// Package syncq keeps requests that could not reach the server so `gtt sync` can replay them.
package syncq

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

type Command struct {
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	Body           map[string]any `json:"body,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
	QueuedAt       time.Time      `json:"queued_at"`
}

func queuePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".gtt")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.json"), nil
}

func Load() ([]Command, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Command{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Command{}, nil
	}
	var out []Command
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func Save(commands []Command) error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(commands, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func Push(cmd Command) error {
	commands, err := Load()
	if err != nil {
		return err
	}
	if cmd.QueuedAt.IsZero() {
		cmd.QueuedAt = time.Now().UTC()
	}
	commands = append(commands, cmd)
	return Save(commands)
}

// Result is the outcome of one replayed command.
type Result struct {
	Command Command
	Err     error
}

// Replay sends every queued command in order. Commands for which retry reports true stay queued;
// everything else, delivered or permanently rejected, is dropped.
func Replay(ctx context.Context, send func(context.Context, Command) error, retry func(error) bool) ([]Result, error) {
	commands, err := Load()
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(commands))
	var keep []Command
	for i, cmd := range commands {
		if ctx.Err() != nil {
			keep = append(keep, commands[i:]...)
			break
		}
		err := send(ctx, cmd)
		results = append(results, Result{Command: cmd, Err: err})
		if err != nil && retry(err) {
			keep = append(keep, cmd)
		}
	}
	if keep == nil {
		keep = []Command{}
	}
	return results, Save(keep)
}
