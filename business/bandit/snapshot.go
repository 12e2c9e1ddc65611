package bandit

import "time"

const SnapshotVersion = 1

// Snapshot is the serializable form of the statistics table. It is
// exported periodically and used to seed a fresh process, so learning
// survives restarts.
type Snapshot struct {
	Version    int                            `json:"version"`
	ExportedAt time.Time                      `json:"exported_at"`
	Segments   map[string]map[string]ArmStats `json:"segments"`
}
