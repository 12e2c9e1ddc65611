package bandit

import (
	"hash/fnv"
	"sync"

	"github.com/choresh/PspRouter-sub000/pkg/logger"
)

const storeShards = 64

type storeEntry struct {
	mu    sync.Mutex
	stats ArmStats
}

type storeShard struct {
	mu      sync.RWMutex
	entries map[string]*storeEntry
}

// Store holds all per-(segment, arm) statistics. Entries are guarded
// individually so an update on one key never blocks reads of another;
// the shard lock is held only long enough to look up or insert an
// entry pointer.
type Store struct {
	shards [storeShards]*storeShard
}

func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &storeShard{entries: make(map[string]*storeEntry)}
	}
	return s
}

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % storeShards
}

// entry returns the entry for key, creating it when create is set.
func (s *Store) entry(key string, create bool) *storeEntry {
	sh := s.shards[shardIndex(key)]

	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()
	if ok || !create {
		return e
	}

	sh.mu.Lock()
	e, ok = sh.entries[key]
	if !ok {
		e = &storeEntry{stats: newArmStats()}
		sh.entries[key] = e
	}
	sh.mu.Unlock()

	return e
}

// Get returns a copy of the statistics for key. A corrupted entry is
// reset to the zero-state before the copy is taken.
func (s *Store) Get(key string) (ArmStats, bool) {
	e := s.entry(key, false)
	if e == nil {
		return ArmStats{}, false
	}

	e.mu.Lock()
	if e.stats.corrupted() {
		resetEntry(key, e)
	}
	out := copyStats(e.stats)
	e.mu.Unlock()

	return out, true
}

// Mutate runs fn against the live statistics for key under the entry
// lock, creating the entry on first touch. Corruption found before the
// mutation resets the entry so fn always sees a sane state.
func (s *Store) Mutate(key string, fn func(*ArmStats)) {
	e := s.entry(key, true)

	e.mu.Lock()
	if e.stats.corrupted() {
		resetEntry(key, e)
	}
	fn(&e.stats)
	e.mu.Unlock()
}

// resetEntry replaces an impossible state with a fresh zero-state.
// Caller holds the entry lock.
func resetEntry(key string, e *storeEntry) {
	logger.Warn("bandit_stats_reset", "key", key, "count", e.stats.Count)
	StatisticsResetsTotal.Inc()
	e.stats = newArmStats()
}

// Export copies the whole table. Entry locks are taken one at a time,
// so the result is per-key consistent but not a global point-in-time
// view.
func (s *Store) Export() map[string]ArmStats {
	out := make(map[string]ArmStats)

	for _, sh := range s.shards {
		sh.mu.RLock()
		keys := make([]string, 0, len(sh.entries))
		entries := make([]*storeEntry, 0, len(sh.entries))
		for k, e := range sh.entries {
			keys = append(keys, k)
			entries = append(entries, e)
		}
		sh.mu.RUnlock()

		for i, e := range entries {
			e.mu.Lock()
			out[keys[i]] = copyStats(e.stats)
			e.mu.Unlock()
		}
	}

	return out
}

// Replace swaps in a whole table, dropping whatever was there. Entries
// that arrive corrupted come back as the zero-state.
func (s *Store) Replace(table map[string]ArmStats) {
	fresh := make([]map[string]*storeEntry, storeShards)
	for i := range fresh {
		fresh[i] = make(map[string]*storeEntry)
	}

	for key, stats := range table {
		e := &storeEntry{stats: newArmStats()}
		if stats.corrupted() {
			logger.Warn("bandit_stats_reset", "key", key, "count", stats.Count)
			StatisticsResetsTotal.Inc()
		} else {
			e.stats = copyStats(stats)
		}
		fresh[shardIndex(key)][key] = e
	}

	for i, sh := range s.shards {
		sh.mu.Lock()
		sh.entries = fresh[i]
		sh.mu.Unlock()
	}
}

// Len reports the number of tracked (segment, arm) pairs.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

func copyStats(in ArmStats) ArmStats {
	out := in
	if in.Centroids != nil {
		out.Centroids = make(map[string]float64, len(in.Centroids))
		for k, v := range in.Centroids {
			out.Centroids[k] = v
		}
	}
	return out
}
