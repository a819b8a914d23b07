package game

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"lukechampine.com/blake3"
)

const SnapshotVersion = 1

var (
	ErrSnapshotVersion  = errors.New("unsupported save version")
	ErrSnapshotChecksum = errors.New("save checksum mismatch")
)

type envelope struct {
	Version  int             `json:"v"`
	Checksum string          `json:"sum"`
	State    json.RawMessage `json:"state"`
}

// Encode wraps the state in a versioned envelope carrying a BLAKE3 checksum of the payload.
func Encode(g *State) ([]byte, error) {
	payload, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode game: %w", err)
	}
	return json.Marshal(envelope{Version: SnapshotVersion, Checksum: checksum(payload), State: payload})
}

func Decode(data []byte) (*State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	if env.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, env.Version)
	}
	if checksum(env.State) != env.Checksum {
		return nil, ErrSnapshotChecksum
	}
	var g State
	if err := json.Unmarshal(env.State, &g); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	if g.Inventory == nil {
		g.Inventory = map[string]Holding{}
	}
	if g.Staff == nil {
		g.Staff = map[StaffRole]int{}
	}
	if g.Purchased == nil {
		g.Purchased = map[string]int{}
	}
	g.Rules = g.Rules.Normalize()
	return &g, nil
}

func checksum(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}
