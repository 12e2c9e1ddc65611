//go:build !integration

package bandit

import (
	"context"
	"sync"
	"testing"

	"github.com/choresh/PspRouter-sub000/domain"

	exprand "golang.org/x/exp/rand"
)

// minimal in-memory SnapshotRepository for load/export tests
type fakeSnapshotRepo struct {
	mu    sync.Mutex
	saved *Snapshot
	err   error
}

func (f *fakeSnapshotRepo) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved, f.err
}

func (f *fakeSnapshotRepo) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = snap
	return nil
}

func TestEngine_SelectRequiresArms(t *testing.T) {
	e := NewEngine(nil)

	if _, err := e.Select("US|USD|visa", nil, SelectSpec{}); err == nil {
		t.Fatal("expected an error for an empty arm list")
	}
}

func TestEngine_SelectColdStartKeepsFirstArm(t *testing.T) {
	e := NewEngine(nil)
	arms := []string{"stripe", "adyen"}

	got, err := e.Select("US|USD|visa", arms, SelectSpec{Policy: domain.PolicyEpsilonGreedy})
	if err != nil {
		t.Fatalf("Failed to select: %v", err)
	}
	if got != "stripe" {
		t.Fatalf("expected the first arm on a cold start, got %q", got)
	}
}

func TestEngine_UpdateShiftsSelection(t *testing.T) {
	e := NewEngine(nil)
	seg := "US|USD|visa"
	arms := []string{"stripe", "adyen"}

	for i := 0; i < 10; i++ {
		e.Update(seg, "adyen", 0.9, nil)
		e.Update(seg, "stripe", 0.1, nil)
	}

	got, err := e.Select(seg, arms, SelectSpec{Policy: domain.PolicyEpsilonGreedy})
	if err != nil {
		t.Fatalf("Failed to select: %v", err)
	}
	if got != "adyen" {
		t.Fatalf("expected the higher-mean arm, got %q", got)
	}

	// learning is per segment
	other, err := e.Select("DE|EUR|wallet", arms, SelectSpec{Policy: domain.PolicyEpsilonGreedy})
	if err != nil {
		t.Fatalf("Failed to select: %v", err)
	}
	if other != "stripe" {
		t.Fatalf("expected an untouched segment to stay cold, got %q", other)
	}
}

func TestEngine_UpdateMovesAllFieldsTogether(t *testing.T) {
	e := NewEngine(nil)
	seg := "US|USD|visa"

	e.Update(seg, "adyen", 0.75, map[string]float64{"amount": 100})
	e.Update(seg, "adyen", -0.25, map[string]float64{"amount": 200})

	st, ok := e.store.Get(statKey(seg, "adyen"))
	if !ok {
		t.Fatal("expected the stat entry to exist")
	}
	if st.Count != 2 {
		t.Fatalf("expected count 2, got %d", st.Count)
	}
	if st.Sum != 0.5 {
		t.Fatalf("expected sum 0.5, got %v", st.Sum)
	}
	// one positive and one non-positive reward on top of the (1,1) prior
	if st.Alpha != 2 || st.Beta != 2 {
		t.Fatalf("expected pseudo-counts (2,2), got (%v,%v)", st.Alpha, st.Beta)
	}
	// running mean: 100 then 100+(200-100)/2
	if st.Centroids["amount"] != 150 {
		t.Fatalf("expected centroid 150, got %v", st.Centroids["amount"])
	}
}

func TestEngine_ThompsonWithSeededSource(t *testing.T) {
	e := NewEngine(nil, WithBetaSource(exprand.NewSource(42)))
	seg := "US|USD|visa"
	arms := []string{"strong", "weak"}

	for i := 0; i < 50; i++ {
		e.Update(seg, "strong", 1.0, nil)
		e.Update(seg, "weak", 0.0, nil)
	}

	for i := 0; i < 100; i++ {
		got, err := e.Select(seg, arms, SelectSpec{Policy: domain.PolicyThompson})
		if err != nil {
			t.Fatalf("Failed to select: %v", err)
		}
		if got != "strong" {
			t.Fatalf("draw %d picked %q against a heavily skewed posterior", i, got)
		}
	}
}

func TestEngine_SegmentView(t *testing.T) {
	e := NewEngine(nil)
	seg := "US|USD|visa"

	e.Update(seg, "adyen", 0.5, nil)

	view := e.SegmentView(seg, []string{"adyen", "stripe"})
	if view["adyen"].Count != 1 || view["adyen"].AvgReward != 0.5 {
		t.Fatalf("unexpected adyen view: %+v", view["adyen"])
	}
	if view["stripe"].Count != 0 {
		t.Fatalf("expected the unseen arm to report zero pulls: %+v", view["stripe"])
	}
}

func TestEngine_SnapshotRestoreRoundTrip(t *testing.T) {
	e := NewEngine(nil)
	e.Update("US|USD|visa", "adyen", 0.9, nil)
	e.Update("US|USD|visa", "stripe", 0.2, nil)
	e.Update("DE|EUR|wallet", "stripe", 0.7, nil)

	snap := e.Snapshot()
	if snap.Version != SnapshotVersion {
		t.Fatalf("expected snapshot version %d, got %d", SnapshotVersion, snap.Version)
	}
	if len(snap.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(snap.Segments))
	}

	restored := NewEngine(nil)
	restored.Restore(snap)

	view := restored.ArmView("US|USD|visa", "adyen")
	if view.Count != 1 || view.AvgReward != 0.9 {
		t.Fatalf("restore lost state: %+v", view)
	}
	if restored.store.Len() != 3 {
		t.Fatalf("expected 3 entries after restore, got %d", restored.store.Len())
	}
}

func TestEngine_ExportThenLoadSnapshot(t *testing.T) {
	repo := &fakeSnapshotRepo{}
	ctx := context.Background()

	e := NewEngine(repo)
	e.Update("US|USD|visa", "adyen", 0.8, nil)
	if err := e.ExportSnapshot(ctx); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	warm := NewEngine(repo)
	if err := warm.LoadSnapshot(ctx); err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}

	view := warm.ArmView("US|USD|visa", "adyen")
	if view.Count != 1 || view.AvgReward != 0.8 {
		t.Fatalf("expected the loaded table to carry the update: %+v", view)
	}
}

func TestEngine_LoadSnapshotColdStart(t *testing.T) {
	e := NewEngine(&fakeSnapshotRepo{})

	// no stored snapshot is a clean start, not an error
	if err := e.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("expected a missing snapshot to load cleanly: %v", err)
	}
	if e.store.Len() != 0 {
		t.Fatalf("expected an empty table, got %d entries", e.store.Len())
	}
}

func TestEngine_ExportSnapshotCancelledContext(t *testing.T) {
	e := NewEngine(&fakeSnapshotRepo{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.ExportSnapshot(ctx); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
