package monitor

import (
	"math"
	"testing"

	"github.com/scholarpath/slaops/internal/sla/model"
)

func TestEvaluate_Directionality(t *testing.T) {
	snap := &model.PerformanceSnapshot{
		Availability:  99.80,
		LatencyP95Ms:  100,
		ErrorRate:     0.05,
		ThroughputRPS: 1200,
	}
	cases := []struct {
		name     string
		target   model.SLATarget
		violated bool
	}{
		{"availability below target violates", model.SLATarget{Metric: model.MetricAvailability, Value: 99.95}, true},
		{"availability above target complies", model.SLATarget{Metric: model.MetricAvailability, Value: 99.5}, false},
		{"latency below target complies", model.SLATarget{Metric: model.MetricLatencyP95, Value: 120}, false},
		{"latency above target violates", model.SLATarget{Metric: model.MetricLatencyP95, Value: 80}, true},
		{"error rate below target complies", model.SLATarget{Metric: model.MetricErrorRate, Value: 0.1}, false},
		{"throughput above target complies", model.SLATarget{Metric: model.MetricThroughput, Value: 1000}, false},
		{"throughput below target violates", model.SLATarget{Metric: model.MetricThroughput, Value: 1500}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Evaluate(snap, tc.target)
			if v.Violated != tc.violated {
				t.Fatalf("violated=%v, expected %v (actual=%v target=%v)", v.Violated, tc.violated, v.Actual, v.Target)
			}
		})
	}
}

func TestEvaluate_DeviationRatio(t *testing.T) {
	snap := &model.PerformanceSnapshot{Availability: 99.80}
	v := Evaluate(snap, model.SLATarget{Metric: model.MetricAvailability, Value: 99.95})
	if !v.Violated {
		t.Fatal("99.80 against 99.95 must violate")
	}
	want := (99.95 - 99.80) / 99.95
	if math.Abs(v.DeviationRatio-want) > 1e-9 {
		t.Fatalf("deviation ratio: expected %v, got %v", want, v.DeviationRatio)
	}
	if v.Severity != model.SeverityInfo {
		t.Fatalf("a 0.15%% availability dip is info, got %s", v.Severity)
	}
}

func TestEvaluate_SeverityBands(t *testing.T) {
	cases := []struct {
		name     string
		latency  float64
		severity model.Severity
	}{
		{"within 5 percent is info", 104, model.SeverityInfo},
		{"over 5 percent is warning", 110, model.SeverityWarning},
		{"over 20 percent is critical", 125, model.SeverityCritical},
		{"over 50 percent is emergency", 200, model.SeverityEmergency},
	}
	target := model.SLATarget{Metric: model.MetricLatencyP99, Value: 100}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := &model.PerformanceSnapshot{LatencyP99Ms: tc.latency}
			v := Evaluate(snap, target)
			if !v.Violated {
				t.Fatalf("latency %v against target 100 must violate", tc.latency)
			}
			if v.Severity != tc.severity {
				t.Fatalf("severity: expected %s, got %s (ratio %v)", tc.severity, v.Severity, v.DeviationRatio)
			}
		})
	}
}

func TestEvaluate_NoViolationKeepsInfo(t *testing.T) {
	snap := &model.PerformanceSnapshot{LatencyP50Ms: 10}
	v := Evaluate(snap, model.SLATarget{Metric: model.MetricLatencyP50, Value: 50})
	if v.Violated {
		t.Fatal("compliant measurement must not violate")
	}
	if v.Severity != model.SeverityInfo {
		t.Fatalf("compliant verdict severity must stay info, got %s", v.Severity)
	}
}

func TestEvaluate_ZeroTargetNoDivision(t *testing.T) {
	snap := &model.PerformanceSnapshot{ErrorRate: 5}
	v := Evaluate(snap, model.SLATarget{Metric: model.MetricErrorRate, Value: 0})
	if !v.Violated {
		t.Fatal("any error rate above a zero target violates")
	}
	if v.DeviationRatio != 0 {
		t.Fatalf("zero target must leave ratio at 0, got %v", v.DeviationRatio)
	}
}
