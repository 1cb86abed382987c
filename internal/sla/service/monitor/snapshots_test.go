package monitor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/scholarpath/slaops/internal/sla/model"
)

func validSnap(partnerID string, ts time.Time) model.PerformanceSnapshot {
	return model.PerformanceSnapshot{
		PartnerID:     partnerID,
		Tier:          model.TierEnterprise,
		Timestamp:     ts,
		Availability:  99.99,
		LatencyP50Ms:  20,
		LatencyP95Ms:  60,
		LatencyP99Ms:  90,
		ErrorRate:     0.01,
		ThroughputRPS: 1500,
	}
}

func TestSnapshotStore_AppendAndLatest(t *testing.T) {
	store := NewSnapshotStore(10)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := store.Append(validSnap("partner-a", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	latest, ok := store.Latest("partner-a")
	if !ok {
		t.Fatal("expected latest snapshot")
	}
	if !latest.Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("latest timestamp: got %v", latest.Timestamp)
	}
	if _, ok := store.Latest("partner-b"); ok {
		t.Fatal("unknown partner must have no latest snapshot")
	}
}

func TestSnapshotStore_RingEviction(t *testing.T) {
	store := NewSnapshotStore(5)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		if err := store.Append(validSnap("partner-a", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if n := store.Count("partner-a"); n != 5 {
		t.Fatalf("expected 5 retained snapshots, got %d", n)
	}
	// oldest three evicted
	got := store.Range("partner-a", base, base.Add(time.Hour))
	if len(got) != 5 {
		t.Fatalf("range length: expected 5, got %d", len(got))
	}
	if !got[0].Timestamp.Equal(base.Add(3 * time.Minute)) {
		t.Fatalf("oldest retained: expected t+3m, got %v", got[0].Timestamp)
	}
}

func TestSnapshotStore_RangeBoundsInclusive(t *testing.T) {
	store := NewSnapshotStore(0)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		if err := store.Append(validSnap("partner-a", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}
	got := store.Range("partner-a", base.Add(2*time.Minute), base.Add(5*time.Minute))
	if len(got) != 4 {
		t.Fatalf("expected 4 snapshots in [t+2m, t+5m], got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Fatal("range result must be ordered by timestamp")
		}
	}
	if got := store.Range("nobody", base, base.Add(time.Hour)); got != nil {
		t.Fatalf("unknown partner range must be nil, got %v", got)
	}
}

func TestSnapshotStore_Partners(t *testing.T) {
	store := NewSnapshotStore(0)
	ts := time.Now().UTC()
	a := validSnap("partner-a", ts)
	b := validSnap("partner-b", ts)
	b.Tier = model.TierStandard
	if err := store.Append(a); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(b); err != nil {
		t.Fatal(err)
	}
	partners := store.Partners()
	if len(partners) != 2 {
		t.Fatalf("expected 2 partners, got %d", len(partners))
	}
	if partners["partner-a"] != model.TierEnterprise || partners["partner-b"] != model.TierStandard {
		t.Fatalf("unexpected tiers: %v", partners)
	}
}

func TestSnapshotStore_ConcurrentIngestAndPartners(t *testing.T) {
	store := NewSnapshotStore(0)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			snap := validSnap("partner-a", base.Add(time.Duration(i)*time.Second))
			if i%2 == 1 {
				snap.Tier = model.TierStandard
			}
			if err := store.Append(snap); err != nil {
				t.Errorf("append %d: %v", i, err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			for id, tier := range store.Partners() {
				if id != "partner-a" {
					t.Errorf("unexpected partner %q", id)
					return
				}
				if tier != model.TierEnterprise && tier != model.TierStandard {
					t.Errorf("unexpected tier %q", tier)
					return
				}
			}
		}
	}()
	wg.Wait()

	partners := store.Partners()
	if partners["partner-a"] != model.TierStandard {
		t.Fatalf("expected last ingested tier, got %q", partners["partner-a"])
	}
}

func TestValidateSnapshot(t *testing.T) {
	ts := time.Now().UTC()
	cases := []struct {
		name   string
		mutate func(*model.PerformanceSnapshot)
	}{
		{"empty partner id", func(s *model.PerformanceSnapshot) { s.PartnerID = "" }},
		{"unknown tier", func(s *model.PerformanceSnapshot) { s.Tier = "bronze" }},
		{"zero timestamp", func(s *model.PerformanceSnapshot) { s.Timestamp = time.Time{} }},
		{"availability above 100", func(s *model.PerformanceSnapshot) { s.Availability = 100.5 }},
		{"negative availability", func(s *model.PerformanceSnapshot) { s.Availability = -1 }},
		{"error rate above 100", func(s *model.PerformanceSnapshot) { s.ErrorRate = 120 }},
		{"negative latency", func(s *model.PerformanceSnapshot) { s.LatencyP95Ms = -5 }},
		{"negative throughput", func(s *model.PerformanceSnapshot) { s.ThroughputRPS = -1 }},
		{"negative connections", func(s *model.PerformanceSnapshot) { s.ConcurrentConns = -1 }},
	}
	store := NewSnapshotStore(0)
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := validSnap(fmt.Sprintf("partner-%d", i), ts)
			tc.mutate(&snap)
			err := store.Append(snap)
			if !model.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
