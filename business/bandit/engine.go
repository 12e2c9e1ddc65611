package bandit

import (
	"context"
	"fmt"
	"time"

	"github.com/choresh/PspRouter-sub000/domain"
	"github.com/choresh/PspRouter-sub000/pkg/logger"

	exprand "golang.org/x/exp/rand"
)

// SnapshotRepository persists the statistics table across restarts.
type SnapshotRepository interface {
	GetSnapshot(ctx context.Context) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
}

// SelectSpec carries the per-call policy knobs resolved from config.
type SelectSpec struct {
	Policy   string
	Epsilon  float64
	Features map[string]float64
}

// Engine owns the ArmStats table and its snapshot lifecycle. Construct
// one per process (or per test); there is no package-level instance.
type Engine struct {
	store    *Store
	snapRepo SnapshotRepository
	betaSrc  exprand.Source
}

type Option func(*Engine)

// WithBetaSource fixes the random source behind Thompson draws, for
// reproducible selection in tests.
func WithBetaSource(src exprand.Source) Option {
	return func(e *Engine) {
		e.betaSrc = src
	}
}

func NewEngine(snapRepo SnapshotRepository, opts ...Option) *Engine {
	e := &Engine{
		store:    NewStore(),
		snapRepo: snapRepo,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Select picks one arm from the admissible list using the requested
// policy. The statistics are copied out per key, so a concurrent
// Update on an unrelated key never blocks the pick.
func (e *Engine) Select(segmentKey string, arms []string, spec SelectSpec) (string, error) {
	if len(arms) == 0 {
		return "", fmt.Errorf("no arms to select from")
	}

	stats := make([]ArmStats, len(arms))
	for i, arm := range arms {
		st, ok := e.store.Get(statKey(segmentKey, arm))
		if !ok {
			st = newArmStats()
		}
		stats[i] = st
	}

	switch spec.Policy {
	case domain.PolicyThompson:
		return thompson(arms, stats, e.betaSrc), nil
	case domain.PolicyContextual:
		return contextualGreedy(arms, stats, spec.Epsilon, spec.Features), nil
	default:
		return epsilonGreedy(arms, stats, spec.Epsilon), nil
	}
}

// Update applies exactly one outcome's reward to one (segment, arm)
// statistic. Count, sum, the Thompson pseudo-counts, and the feature
// centroids all move together under the entry lock; never partially.
func (e *Engine) Update(segmentKey, arm string, reward float64, features map[string]float64) {
	e.store.Mutate(statKey(segmentKey, arm), func(st *ArmStats) {
		st.Count++
		st.Sum += reward

		if reward > 0 {
			st.Alpha++
		} else {
			st.Beta++
		}

		if st.Centroids == nil {
			st.Centroids = make(map[string]float64)
		}
		for f, observed := range features {
			c := st.Centroids[f]
			st.Centroids[f] = c + (observed-c)/float64(st.Count)
		}

		st.LastUpdated = time.Now()
	})

	ArmUpdatesTotal.WithLabelValues(segmentKey, arm).Inc()
}

// ArmView summarizes one arm's learned state.
func (e *Engine) ArmView(segmentKey, arm string) domain.ArmStatView {
	st, ok := e.store.Get(statKey(segmentKey, arm))
	if !ok {
		st = newArmStats()
	}
	return st.view()
}

// SegmentView summarizes the named arms for one segment, for reasoner
// payloads and debug output.
func (e *Engine) SegmentView(segmentKey string, arms []string) map[string]domain.ArmStatView {
	out := make(map[string]domain.ArmStatView, len(arms))
	for _, arm := range arms {
		out[arm] = e.ArmView(segmentKey, arm)
	}
	return out
}

// Snapshot captures the current table.
func (e *Engine) Snapshot() *Snapshot {
	segments := make(map[string]map[string]ArmStats)
	for key, stats := range e.store.Export() {
		seg, arm, ok := splitStatKey(key)
		if !ok {
			continue
		}
		if segments[seg] == nil {
			segments[seg] = make(map[string]ArmStats)
		}
		segments[seg][arm] = stats
	}

	return &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now(),
		Segments:   segments,
	}
}

// Restore replaces the table with a previously exported snapshot.
func (e *Engine) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}

	table := make(map[string]ArmStats)
	for seg, armStats := range snap.Segments {
		for arm, stats := range armStats {
			table[statKey(seg, arm)] = stats
		}
	}

	e.store.Replace(table)
}

// LoadSnapshot seeds the table from persistence. A missing snapshot is
// a clean cold start, not an error.
func (e *Engine) LoadSnapshot(ctx context.Context) error {
	if e.snapRepo == nil {
		return nil
	}

	snap, err := e.snapRepo.GetSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bandit snapshot: %w", err)
	}
	if snap == nil {
		return nil
	}

	e.Restore(snap)
	logger.Info("bandit_snapshot_loaded",
		"segments", len(snap.Segments),
		"entries", e.store.Len(),
	)

	return nil
}

// ExportSnapshot persists the current table.
func (e *Engine) ExportSnapshot(ctx context.Context) error {
	if e.snapRepo == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := e.snapRepo.SaveSnapshot(ctx, e.Snapshot()); err != nil {
		return fmt.Errorf("failed to save bandit snapshot: %w", err)
	}

	SnapshotExportsTotal.Inc()
	return nil
}

// StartSnapshotLoop exports the table on a fixed interval until ctx is
// cancelled. Run it in its own goroutine.
func (e *Engine) StartSnapshotLoop(ctx context.Context, interval time.Duration) {
	if e.snapRepo == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.ExportSnapshot(ctx); err != nil {
				logger.Error("Failed to export bandit snapshot", "error", err)
			}
		}
	}
}
