package monitor

import (
	"math"

	"github.com/scholarpath/slaops/internal/sla/model"
)

// Verdict is the outcome of evaluating one snapshot measurement against its
// SLA target.
type Verdict struct {
	Metric         model.MetricKind `json:"metric"`
	Violated       bool             `json:"violated"`
	Actual         float64          `json:"actual"`
	Target         float64          `json:"target"`
	DeviationRatio float64          `json:"deviationRatio"`
	Severity       model.Severity   `json:"severity"`
}

// Evaluate compares a snapshot measurement with the given target. Violation
// direction depends on the metric kind: availability and throughput violate
// below target, latency and error rate violate above it. The severity banding
// over the deviation ratio is fixed so results are reproducible everywhere.
func Evaluate(snap *model.PerformanceSnapshot, target model.SLATarget) Verdict {
	actual := snap.MetricValue(target.Metric)
	v := Verdict{
		Metric:   target.Metric,
		Actual:   actual,
		Target:   target.Value,
		Severity: model.SeverityInfo,
	}
	if target.Metric.HigherIsBetter() {
		v.Violated = actual < target.Value
	} else {
		v.Violated = actual > target.Value
	}
	if target.Value != 0 {
		v.DeviationRatio = math.Abs(actual-target.Value) / target.Value
	}
	if v.Violated {
		v.Severity = severityForDeviation(v.DeviationRatio)
	}
	return v
}

// severityForDeviation maps a deviation ratio to a severity band.
func severityForDeviation(ratio float64) model.Severity {
	switch {
	case ratio > 0.5:
		return model.SeverityEmergency
	case ratio > 0.2:
		return model.SeverityCritical
	case ratio > 0.05:
		return model.SeverityWarning
	default:
		return model.SeverityInfo
	}
}
