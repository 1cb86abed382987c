package monitor

import (
	"math"
	"testing"
	"time"

	"github.com/scholarpath/slaops/internal/sla/model"
)

func TestComputeWindow_NoData(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	w := ComputeWindow(nil, "partner-a", start, end, 99.95)
	if w.Availability != 100 {
		t.Fatalf("no data must report 100%% availability, got %v", w.Availability)
	}
	if w.IncidentCount != 0 || w.DowntimeMinutes != 0 {
		t.Fatalf("no data must report no incidents or downtime: %+v", w)
	}
	if !w.Compliant {
		t.Fatal("100%% availability satisfies any target")
	}
	if w.TotalMinutes != 60 {
		t.Fatalf("total minutes: expected 60, got %v", w.TotalMinutes)
	}
}

func TestComputeWindow_Aggregation(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	// 60 one-minute samples, 10 of them at 98% (each an incident), rest at 100%
	var snaps []model.PerformanceSnapshot
	for i := 0; i < 60; i++ {
		avail := 100.0
		if i < 10 {
			avail = 98.0
		}
		snaps = append(snaps, model.PerformanceSnapshot{
			PartnerID:    "partner-a",
			Timestamp:    start.Add(time.Duration(i) * time.Minute),
			Availability: avail,
		})
	}
	w := ComputeWindow(snaps, "partner-a", start, end, 99.9)

	wantAvail := (10*98.0 + 50*100.0) / 60.0
	if math.Abs(w.Availability-wantAvail) > 1e-9 {
		t.Fatalf("availability: expected %v, got %v", wantAvail, w.Availability)
	}
	if w.IncidentCount != 10 {
		t.Fatalf("incident count: expected 10, got %d", w.IncidentCount)
	}
	wantDowntime := 60 * (100 - wantAvail) / 100
	if math.Abs(w.DowntimeMinutes-wantDowntime) > 1e-9 {
		t.Fatalf("downtime minutes: expected %v, got %v", wantDowntime, w.DowntimeMinutes)
	}
	if w.Compliant {
		t.Fatalf("%.4f%% against a 99.9%% target must not be compliant", w.Availability)
	}
}

func TestComputeWindow_IncidentFloor(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	snaps := []model.PerformanceSnapshot{
		{PartnerID: "partner-a", Timestamp: start, Availability: 99.5},
		{PartnerID: "partner-a", Timestamp: start.Add(time.Minute), Availability: 98.9},
	}
	w := ComputeWindow(snaps, "partner-a", start, start.Add(2*time.Minute), 99.0)
	if w.IncidentCount != 1 {
		t.Fatalf("only samples below 99%% count as incidents, got %d", w.IncidentCount)
	}
	if !w.Compliant {
		t.Fatalf("average %.2f%% meets a 99%% target", w.Availability)
	}
}

func TestComputeWindow_Idempotent(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	snaps := []model.PerformanceSnapshot{
		{PartnerID: "partner-a", Timestamp: start, Availability: 97},
	}
	first := ComputeWindow(snaps, "partner-a", start, start.Add(time.Hour), 99.5)
	second := ComputeWindow(snaps, "partner-a", start, start.Add(time.Hour), 99.5)
	if first != second {
		t.Fatalf("recomputation must be deterministic: %+v vs %+v", first, second)
	}
}
