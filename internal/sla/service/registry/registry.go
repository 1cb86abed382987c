package registry

import (
	"fmt"
	"sort"

	"github.com/scholarpath/slaops/internal/sla/model"
)

// Registry is the static per-tier SLA target catalog. It is a pure lookup
// table validated at construction; there are no mutation operations.
type Registry struct {
	byTier map[model.Tier][]model.SLATarget
}

// New builds a Registry from the given targets and validates the catalog:
// every tier must define every required metric kind exactly once.
func New(targets []model.SLATarget) (*Registry, error) {
	byTier := make(map[model.Tier][]model.SLATarget, len(model.AllTiers()))
	seen := map[model.Tier]map[model.MetricKind]bool{}
	for _, t := range targets {
		if !t.Tier.IsValid() {
			return nil, &model.ConfigurationError{Scope: "sla_targets", Detail: fmt.Sprintf("unknown tier %q", t.Tier)}
		}
		if !t.Metric.IsValid() {
			return nil, &model.ConfigurationError{Scope: "sla_targets", Detail: fmt.Sprintf("unknown metric %q for tier %s", t.Metric, t.Tier)}
		}
		if seen[t.Tier] == nil {
			seen[t.Tier] = map[model.MetricKind]bool{}
		}
		if seen[t.Tier][t.Metric] {
			return nil, &model.ConfigurationError{Scope: "sla_targets", Detail: fmt.Sprintf("duplicate target for tier %s metric %s", t.Tier, t.Metric)}
		}
		seen[t.Tier][t.Metric] = true
		byTier[t.Tier] = append(byTier[t.Tier], t)
	}
	for _, tier := range model.AllTiers() {
		for _, kind := range model.RequiredMetricKinds() {
			if !seen[tier][kind] {
				return nil, &model.ConfigurationError{Scope: "sla_targets", Detail: fmt.Sprintf("tier %s missing target for metric %s", tier, kind)}
			}
		}
	}
	// stable order within a tier: catalog order of metric kinds
	rank := map[model.MetricKind]int{}
	for i, k := range model.RequiredMetricKinds() {
		rank[k] = i
	}
	for tier := range byTier {
		ts := byTier[tier]
		sort.SliceStable(ts, func(i, j int) bool { return rank[ts[i].Metric] < rank[ts[j].Metric] })
	}
	return &Registry{byTier: byTier}, nil
}

// Targets returns the ordered target set for the tier.
func (r *Registry) Targets(tier model.Tier) ([]model.SLATarget, error) {
	ts, ok := r.byTier[tier]
	if !ok {
		return nil, &model.ConfigurationError{Scope: "sla_targets", Detail: fmt.Sprintf("unknown tier %q", tier)}
	}
	out := make([]model.SLATarget, len(ts))
	copy(out, ts)
	return out, nil
}

// Target returns the single target for (tier, kind).
func (r *Registry) Target(tier model.Tier, kind model.MetricKind) (model.SLATarget, error) {
	ts, ok := r.byTier[tier]
	if !ok {
		return model.SLATarget{}, &model.ConfigurationError{Scope: "sla_targets", Detail: fmt.Sprintf("unknown tier %q", tier)}
	}
	for _, t := range ts {
		if t.Metric == kind {
			return t, nil
		}
	}
	return model.SLATarget{}, &model.ConfigurationError{Scope: "sla_targets", Detail: fmt.Sprintf("tier %s has no target for metric %s", tier, kind)}
}
