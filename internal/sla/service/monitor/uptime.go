package monitor

import (
	"time"

	"github.com/scholarpath/slaops/internal/sla/model"
)

// incidentAvailabilityFloor is the per-sample availability below which a
// snapshot counts as an incident in uptime aggregation.
const incidentAvailabilityFloor = 99.0

// ComputeWindow aggregates availability over [start, end] from the given
// snapshots. It is a pure function of its inputs: recomputing for overlapping
// windows is safe and idempotent.
//
// A range with no snapshots reports 100% availability and zero incidents:
// absence of data is treated as absence of evidence of downtime.
func ComputeWindow(snaps []model.PerformanceSnapshot, partnerID string, start, end time.Time, availabilityTarget float64) model.UptimeWindow {
	w := model.UptimeWindow{
		PartnerID:    partnerID,
		Start:        start,
		End:          end,
		TotalMinutes: end.Sub(start).Minutes(),
	}
	if len(snaps) == 0 {
		w.Availability = 100
		w.Compliant = 100 >= availabilityTarget
		return w
	}
	var sum float64
	for _, s := range snaps {
		sum += s.Availability
		if s.Availability < incidentAvailabilityFloor {
			w.IncidentCount++
		}
	}
	w.Availability = sum / float64(len(snaps))
	w.DowntimeMinutes = w.TotalMinutes * (100 - w.Availability) / 100
	w.Compliant = w.Availability >= availabilityTarget
	return w
}
