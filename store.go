package actionbox

import (
	"context"
	"encoding/json"
	"fmt"
)

// snapshotVersion tags persisted snapshots so a future layout change has a
// migration hook instead of a silent misparse.
const snapshotVersion = 1

// Store persists the full queue snapshot. The engine is the only writer;
// implementations must make Save atomic enough that a crash mid-write leaves
// the previously durable snapshot intact.
type Store interface {
	// Load returns the persisted queue in creation order, or an empty slice
	// when nothing has been saved yet.
	Load(ctx context.Context) ([]Action, error)
	// Save replaces the persisted queue with the given snapshot.
	Save(ctx context.Context, actions []Action) error
}

// snapshotEnvelope is the on-disk form of a queue snapshot.
type snapshotEnvelope struct {
	Version int      `json:"version"`
	Actions []Action `json:"actions"`
}

// EncodeSnapshot serializes a queue snapshot with its schema version.
func EncodeSnapshot(actions []Action) ([]byte, error) {
	if actions == nil {
		actions = []Action{}
	}
	data, err := json.Marshal(snapshotEnvelope{Version: snapshotVersion, Actions: actions})
	if err != nil {
		return nil, fmt.Errorf("actionbox: failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot blob, rejecting versions this build does
// not understand.
func DecodeSnapshot(data []byte) ([]Action, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("actionbox: failed to decode snapshot: %w", err)
	}
	if env.Version != snapshotVersion {
		return nil, fmt.Errorf("actionbox: unsupported snapshot version %d", env.Version)
	}
	return env.Actions, nil
}
