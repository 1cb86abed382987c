package monitor

import (
	"time"

	"github.com/scholarpath/slaops/internal/sla/model"
	"github.com/scholarpath/slaops/internal/sla/service/registry"
)

// reviewLeadTime is added to the period end to produce the next review date.
const reviewLeadTime = 30 * 24 * time.Hour

// ReportBuilder combines the target registry, snapshot history, breach
// lifecycle and uptime aggregation into per-partner compliance reports.
type ReportBuilder struct {
	registry *registry.Registry
	store    *SnapshotStore
	breaches *BreachManager
}

// NewReportBuilder wires the report builder's read-only collaborators.
func NewReportBuilder(reg *registry.Registry, store *SnapshotStore, breaches *BreachManager) *ReportBuilder {
	return &ReportBuilder{registry: reg, store: store, breaches: breaches}
}

// GenerateReport computes the compliance report for one partner and period.
// Per-metric compliance is the fraction of snapshots in range satisfying the
// target; credits sum over breaches whose start falls in the period.
func (r *ReportBuilder) GenerateReport(partnerID string, tier model.Tier, start, end time.Time) (*model.SLAReport, error) {
	if partnerID == "" {
		return nil, &model.ValidationError{Field: "partnerId", Detail: "must not be empty"}
	}
	if !start.Before(end) {
		return nil, &model.ValidationError{Field: "period", Detail: "start must precede end"}
	}
	targets, err := r.registry.Targets(tier)
	if err != nil {
		return nil, err
	}

	snaps := r.store.Range(partnerID, start, end)
	compliance := make(map[model.MetricKind]float64, len(targets))
	var overallSum float64
	var availabilityTarget float64
	for _, target := range targets {
		if target.Metric == model.MetricAvailability {
			availabilityTarget = target.Value
		}
		pct := compliancePercent(snaps, target)
		compliance[target.Metric] = pct
		overallSum += pct
	}
	overall := 0.0
	if len(targets) > 0 {
		overall = overallSum / float64(len(targets))
	}

	breaches := r.breaches.BreachesStartedIn(partnerID, start, end)
	var credits float64
	for _, b := range breaches {
		credits += b.CreditPercent
	}

	return &model.SLAReport{
		PartnerID:          partnerID,
		Tier:               tier,
		PeriodStart:        start,
		PeriodEnd:          end,
		MetricCompliance:   compliance,
		OverallCompliance:  overall,
		Uptime:             ComputeWindow(snaps, partnerID, start, end, availabilityTarget),
		Breaches:           breaches,
		MaintenanceWindows: []model.MaintenanceWindow{},
		CreditsEarned:      credits,
		NextReview:         end.Add(reviewLeadTime),
	}, nil
}

// compliancePercent is the share of snapshots not violating the target.
// An empty range counts as fully compliant.
func compliancePercent(snaps []model.PerformanceSnapshot, target model.SLATarget) float64 {
	if len(snaps) == 0 {
		return 100
	}
	ok := 0
	for i := range snaps {
		if !Evaluate(&snaps[i], target).Violated {
			ok++
		}
	}
	return float64(ok) / float64(len(snaps)) * 100
}
