package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the particle state needed to resume a run.
type Snapshot struct {
	Version int     `json:"version"`
	Seed    int64   `json:"seed"`
	Tick    int64   `json:"tick"`
	Time    float64 `json:"time"`

	Particles []ParticleState `json:"particles"`
}

// ParticleState holds one particle. Density, pressure and force are
// recomputed on the first step after restore and are not stored.
type ParticleState struct {
	ID       uint64     `json:"id"`
	Position [3]float64 `json:"position"`
	Velocity [3]float64 `json:"velocity"`
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Tick))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
