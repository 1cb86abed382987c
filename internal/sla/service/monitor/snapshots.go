package monitor

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/scholarpath/slaops/internal/sla/model"
)

// DefaultSnapshotCap bounds the per-partner history ring when no cap is
// configured.
const DefaultSnapshotCap = 1000

// SnapshotStore holds per-partner performance history. Snapshots are
// append-only and retained in a bounded ring; the oldest entry is evicted once
// the per-partner cap is exceeded. Partitions are independent, so ingestion
// for different partners never contends.
type SnapshotStore struct {
	mu         sync.RWMutex
	partitions map[string]*snapshotRing
	cap        int
}

type snapshotRing struct {
	mu   sync.Mutex
	tier model.Tier
	buf  []model.PerformanceSnapshot // ordered oldest to newest
}

// NewSnapshotStore creates a store with the given per-partner cap.
// A non-positive cap falls back to DefaultSnapshotCap.
func NewSnapshotStore(capacity int) *SnapshotStore {
	if capacity <= 0 {
		capacity = DefaultSnapshotCap
	}
	return &SnapshotStore{partitions: map[string]*snapshotRing{}, cap: capacity}
}

// Append validates and stores one snapshot.
func (s *SnapshotStore) Append(snap model.PerformanceSnapshot) error {
	if err := validateSnapshot(&snap); err != nil {
		return err
	}
	ring := s.partition(snap.PartnerID)
	ring.mu.Lock()
	defer ring.mu.Unlock()
	ring.tier = snap.Tier
	ring.buf = append(ring.buf, snap)
	if len(ring.buf) > s.cap {
		ring.buf = ring.buf[len(ring.buf)-s.cap:]
	}
	return nil
}

// Latest returns the most recent snapshot for the partner, if any.
func (s *SnapshotStore) Latest(partnerID string) (model.PerformanceSnapshot, bool) {
	s.mu.RLock()
	ring, ok := s.partitions[partnerID]
	s.mu.RUnlock()
	if !ok {
		return model.PerformanceSnapshot{}, false
	}
	ring.mu.Lock()
	defer ring.mu.Unlock()
	if len(ring.buf) == 0 {
		return model.PerformanceSnapshot{}, false
	}
	return ring.buf[len(ring.buf)-1], true
}

// Range returns copies of the partner's snapshots with timestamps in
// [start, end], ordered by timestamp.
func (s *SnapshotStore) Range(partnerID string, start, end time.Time) []model.PerformanceSnapshot {
	s.mu.RLock()
	ring, ok := s.partitions[partnerID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	ring.mu.Lock()
	defer ring.mu.Unlock()
	out := make([]model.PerformanceSnapshot, 0, len(ring.buf))
	for _, snap := range ring.buf {
		if snap.Timestamp.Before(start) || snap.Timestamp.After(end) {
			continue
		}
		out = append(out, snap)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// Partners returns the ids of all partners with at least one snapshot,
// together with the tier seen on their most recent ingest.
func (s *SnapshotStore) Partners() map[string]model.Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Tier, len(s.partitions))
	for id, ring := range s.partitions {
		ring.mu.Lock()
		out[id] = ring.tier
		ring.mu.Unlock()
	}
	return out
}

// Count returns the number of retained snapshots for the partner.
func (s *SnapshotStore) Count(partnerID string) int {
	s.mu.RLock()
	ring, ok := s.partitions[partnerID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	ring.mu.Lock()
	defer ring.mu.Unlock()
	return len(ring.buf)
}

func (s *SnapshotStore) partition(partnerID string) *snapshotRing {
	s.mu.Lock()
	defer s.mu.Unlock()
	ring, ok := s.partitions[partnerID]
	if !ok {
		ring = &snapshotRing{}
		s.partitions[partnerID] = ring
	}
	return ring
}

func validateSnapshot(snap *model.PerformanceSnapshot) error {
	if snap.PartnerID == "" {
		return &model.ValidationError{Field: "partnerId", Detail: "must not be empty"}
	}
	if !snap.Tier.IsValid() {
		return &model.ValidationError{Field: "tier", Detail: fmt.Sprintf("unknown tier %q", snap.Tier)}
	}
	if snap.Timestamp.IsZero() {
		return &model.ValidationError{Field: "timestamp", Detail: "must be set"}
	}
	if snap.Availability < 0 || snap.Availability > 100 {
		return &model.ValidationError{Field: "availability", Detail: "must be within [0,100]"}
	}
	if snap.ErrorRate < 0 || snap.ErrorRate > 100 {
		return &model.ValidationError{Field: "errorRate", Detail: "must be within [0,100]"}
	}
	if snap.LatencyP50Ms < 0 || snap.LatencyP95Ms < 0 || snap.LatencyP99Ms < 0 {
		return &model.ValidationError{Field: "latency", Detail: "must not be negative"}
	}
	if snap.ThroughputRPS < 0 || snap.TransferRateMbs < 0 {
		return &model.ValidationError{Field: "throughput", Detail: "must not be negative"}
	}
	if snap.ConcurrentConns < 0 {
		return &model.ValidationError{Field: "concurrentConns", Detail: "must not be negative"}
	}
	return nil
}
