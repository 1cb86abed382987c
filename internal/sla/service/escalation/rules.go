package escalation

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/scholarpath/slaops/internal/sla/model"
)

// RuleEngine is the static (tier, priority) → escalation ladder catalog.
// Pure lookup, validated at construction.
type RuleEngine struct {
	paths map[ruleKey][]model.EscalationStep
}

type ruleKey struct {
	tier     model.Tier
	priority model.TicketPriority
}

// NewRuleEngine validates and indexes the given rules. Each ladder must have
// at least one step, strictly increasing levels and positive response budgets.
func NewRuleEngine(rules []model.EscalationRule) (*RuleEngine, error) {
	paths := make(map[ruleKey][]model.EscalationStep, len(rules))
	for _, r := range rules {
		if !r.Tier.IsValid() {
			return nil, &model.ConfigurationError{Scope: "escalation_rules", Detail: fmt.Sprintf("unknown tier %q", r.Tier)}
		}
		if !r.Priority.IsValid() {
			return nil, &model.ConfigurationError{Scope: "escalation_rules", Detail: fmt.Sprintf("unknown priority %q", r.Priority)}
		}
		key := ruleKey{tier: r.Tier, priority: r.Priority}
		if _, dup := paths[key]; dup {
			return nil, &model.ConfigurationError{Scope: "escalation_rules", Detail: fmt.Sprintf("duplicate rule for %s/%s", r.Tier, r.Priority)}
		}
		if len(r.Steps) == 0 {
			return nil, &model.ConfigurationError{Scope: "escalation_rules", Detail: fmt.Sprintf("rule %s/%s has no steps", r.Tier, r.Priority)}
		}
		prev := 0
		for _, step := range r.Steps {
			if step.Level <= prev {
				return nil, &model.ConfigurationError{Scope: "escalation_rules", Detail: fmt.Sprintf("rule %s/%s levels must strictly increase", r.Tier, r.Priority)}
			}
			if step.ResponseBudget <= 0 {
				return nil, &model.ConfigurationError{Scope: "escalation_rules", Detail: fmt.Sprintf("rule %s/%s level %d budget must be positive", r.Tier, r.Priority, step.Level)}
			}
			if len(step.Channels) == 0 {
				return nil, &model.ConfigurationError{Scope: "escalation_rules", Detail: fmt.Sprintf("rule %s/%s level %d has no channels", r.Tier, r.Priority, step.Level)}
			}
			prev = step.Level
		}
		steps := make([]model.EscalationStep, len(r.Steps))
		copy(steps, r.Steps)
		paths[key] = steps
	}
	return &RuleEngine{paths: paths}, nil
}

// Path returns the ordered escalation ladder for (tier, priority).
func (e *RuleEngine) Path(tier model.Tier, priority model.TicketPriority) ([]model.EscalationStep, error) {
	steps, ok := e.paths[ruleKey{tier: tier, priority: priority}]
	if !ok {
		return nil, &model.ConfigurationError{Scope: "escalation_rules", Detail: fmt.Sprintf("no rule for %s/%s", tier, priority)}
	}
	out := make([]model.EscalationStep, len(steps))
	copy(out, steps)
	return out, nil
}

// PathOrDefault returns the matching ladder, falling back to the most
// conservative one (Standard/P3) when no rule matches. A missing rule is
// logged but never drops the ticket.
func (e *RuleEngine) PathOrDefault(tier model.Tier, priority model.TicketPriority) []model.EscalationStep {
	steps, err := e.Path(tier, priority)
	if err == nil {
		return steps
	}
	log.Warn().Str("tier", string(tier)).Str("priority", string(priority)).
		Msg("no escalation rule matched, using conservative default path")
	if steps, err = e.Path(model.TierStandard, model.PriorityP3); err == nil {
		return steps
	}
	// catalogs built by DefaultRules always define standard/P3; a custom
	// catalog without it still gets a usable single-step ladder
	return []model.EscalationStep{{Level: 1, ResponseBudget: 4 * time.Hour, Channels: []model.Channel{model.ChannelEmail}}}
}

// DefaultRules is the compiled-in escalation catalog.
func DefaultRules() []model.EscalationRule {
	step := func(level int, budget time.Duration, channels ...model.Channel) model.EscalationStep {
		return model.EscalationStep{Level: level, ResponseBudget: budget, Channels: channels}
	}
	return []model.EscalationRule{
		{Tier: model.TierEnterprise, Priority: model.PriorityP1, Steps: []model.EscalationStep{
			step(1, 15*time.Minute, model.ChannelChat, model.ChannelEmail),
			step(2, 30*time.Minute, model.ChannelChat, model.ChannelEmail, model.ChannelPager),
			step(3, 60*time.Minute, model.ChannelPager, model.ChannelPhone),
			step(4, 120*time.Minute, model.ChannelPhone, model.ChannelExecutive),
		}},
		{Tier: model.TierEnterprise, Priority: model.PriorityP2, Steps: []model.EscalationStep{
			step(1, 30*time.Minute, model.ChannelChat, model.ChannelEmail),
			step(2, 60*time.Minute, model.ChannelChat, model.ChannelPager),
			step(3, 4*time.Hour, model.ChannelPager, model.ChannelExecutive),
		}},
		{Tier: model.TierEnterprise, Priority: model.PriorityP3, Steps: []model.EscalationStep{
			step(1, 2*time.Hour, model.ChannelEmail),
			step(2, 8*time.Hour, model.ChannelChat, model.ChannelEmail),
		}},
		{Tier: model.TierProfessional, Priority: model.PriorityP1, Steps: []model.EscalationStep{
			step(1, 30*time.Minute, model.ChannelChat, model.ChannelEmail),
			step(2, 60*time.Minute, model.ChannelChat, model.ChannelPager),
			step(3, 4*time.Hour, model.ChannelPager, model.ChannelExecutive),
		}},
		{Tier: model.TierProfessional, Priority: model.PriorityP2, Steps: []model.EscalationStep{
			step(1, time.Hour, model.ChannelEmail),
			step(2, 4*time.Hour, model.ChannelChat, model.ChannelEmail),
		}},
		{Tier: model.TierProfessional, Priority: model.PriorityP3, Steps: []model.EscalationStep{
			step(1, 4*time.Hour, model.ChannelEmail),
			step(2, 8*time.Hour, model.ChannelEmail),
		}},
		{Tier: model.TierStandard, Priority: model.PriorityP1, Steps: []model.EscalationStep{
			step(1, time.Hour, model.ChannelEmail),
			step(2, 4*time.Hour, model.ChannelChat, model.ChannelEmail),
		}},
		{Tier: model.TierStandard, Priority: model.PriorityP2, Steps: []model.EscalationStep{
			step(1, 4*time.Hour, model.ChannelEmail),
			step(2, 8*time.Hour, model.ChannelEmail),
		}},
		{Tier: model.TierStandard, Priority: model.PriorityP3, Steps: []model.EscalationStep{
			step(1, 4*time.Hour, model.ChannelEmail),
			step(2, 8*time.Hour, model.ChannelEmail),
		}},
	}
}
