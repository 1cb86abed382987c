package registry

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/scholarpath/slaops/internal/sla/model"
	"gopkg.in/yaml.v3"
)

// TargetsFile is the YAML layout of an SLA targets catalog file.
type TargetsFile struct {
	Targets []model.SLATarget `yaml:"targets"`
}

// LoadTargetsFile reads a YAML targets catalog and builds a validated
// Registry from it.
func LoadTargetsFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file %s: %w", path, err)
	}
	var f TargetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse targets file %s: %w", path, err)
	}
	if len(f.Targets) == 0 {
		return nil, &model.ConfigurationError{Scope: "sla_targets", Detail: "targets file defines no targets"}
	}
	reg, err := New(f.Targets)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("target_count", len(f.Targets)).Msg("loaded SLA targets from file")
	return reg, nil
}

// Default returns a Registry with the compiled-in target catalog, used when
// no targets file is configured.
func Default() *Registry {
	reg, err := New(DefaultTargets())
	if err != nil {
		// compiled-in catalog is complete; this cannot happen
		panic(err)
	}
	return reg
}

// DefaultTargets is the compiled-in per-tier catalog. Latency values are
// milliseconds, availability and error rate are percentages, throughput is
// requests per second.
func DefaultTargets() []model.SLATarget {
	type row struct {
		metric  model.MetricKind
		value   float64
		unit    string
		penalty float64
	}
	catalog := map[model.Tier][]row{
		model.TierEnterprise: {
			{model.MetricAvailability, 99.95, "percent", 10},
			{model.MetricLatencyP50, 50, "ms", 3},
			{model.MetricLatencyP95, 120, "ms", 5},
			{model.MetricLatencyP99, 200, "ms", 5},
			{model.MetricErrorRate, 0.1, "percent", 8},
			{model.MetricThroughput, 1000, "rps", 5},
		},
		model.TierProfessional: {
			{model.MetricAvailability, 99.9, "percent", 5},
			{model.MetricLatencyP50, 100, "ms", 2},
			{model.MetricLatencyP95, 300, "ms", 3},
			{model.MetricLatencyP99, 500, "ms", 3},
			{model.MetricErrorRate, 0.5, "percent", 4},
			{model.MetricThroughput, 500, "rps", 3},
		},
		model.TierStandard: {
			{model.MetricAvailability, 99.5, "percent", 2},
			{model.MetricLatencyP50, 200, "ms", 1},
			{model.MetricLatencyP95, 600, "ms", 1},
			{model.MetricLatencyP99, 1000, "ms", 2},
			{model.MetricErrorRate, 1.0, "percent", 2},
			{model.MetricThroughput, 100, "rps", 1},
		},
	}
	var out []model.SLATarget
	for _, tier := range model.AllTiers() {
		for _, r := range catalog[tier] {
			out = append(out, model.SLATarget{
				Tier:           tier,
				Metric:         r.metric,
				Value:          r.value,
				Unit:           r.unit,
				Period:         "monthly",
				PenaltyPercent: r.penalty,
			})
		}
	}
	return out
}
