package syncq

import (
	"context"
	"errors"
	"testing"
)

var errOffline = errors.New("offline")

func TestPushLoadReplay(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	empty, err := Load()
	if err != nil || len(empty) != 0 {
		t.Fatalf("fresh queue got %v err %v", empty, err)
	}

	for _, key := range []string{"a", "b", "c"} {
		if err := Push(Command{Method: "POST", Path: "/v1/games/" + key + "/score", IdempotencyKey: key}); err != nil {
			t.Fatalf("push %s: %v", key, err)
		}
	}
	queued, err := Load()
	if err != nil || len(queued) != 3 || queued[0].QueuedAt.IsZero() {
		t.Fatalf("queued got %+v err %v", queued, err)
	}

	send := func(_ context.Context, c Command) error {
		switch c.IdempotencyKey {
		case "b":
			return errOffline
		case "c":
			return errors.New("rejected")
		}
		return nil
	}
	retry := func(err error) bool { return errors.Is(err, errOffline) }

	results, err := Replay(context.Background(), send, retry)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[0].Err != nil || results[1].Err == nil {
		t.Fatalf("unexpected results %+v", results)
	}
	left, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].IdempotencyKey != "b" {
		t.Fatalf("only the offline command should remain, got %+v", left)
	}
}

func TestReplayStopsOnCancelledContext(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"a", "b"} {
		if err := Push(Command{Method: "POST", Path: "/x", IdempotencyKey: key}); err != nil {
			t.Fatal(err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := Replay(ctx, func(context.Context, Command) error { return nil }, func(error) bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("nothing should be sent, got %d", len(results))
	}
	left, _ := Load()
	if len(left) != 2 {
		t.Fatalf("queue should be untouched, got %d", len(left))
	}
}
