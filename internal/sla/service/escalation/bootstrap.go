package escalation

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/scholarpath/slaops/internal/sla/model"
	"gopkg.in/yaml.v3"
)

// RulesFile is the YAML layout of an escalation rules file. Budgets are
// Go duration strings ("15m", "2h").
type RulesFile struct {
	Rules []RuleItem `yaml:"rules"`
}

type RuleItem struct {
	Tier     string     `yaml:"tier"`
	Priority string     `yaml:"priority"`
	Steps    []StepItem `yaml:"steps"`
}

type StepItem struct {
	Level    int      `yaml:"level"`
	Budget   string   `yaml:"budget"`
	Channels []string `yaml:"channels"`
}

// LoadRulesFile reads a YAML escalation catalog and builds a validated
// RuleEngine from it.
func LoadRulesFile(path string) (*RuleEngine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}
	var f RulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if len(f.Rules) == 0 {
		return nil, &model.ConfigurationError{Scope: "escalation_rules", Detail: "rules file defines no rules"}
	}
	rules := make([]model.EscalationRule, 0, len(f.Rules))
	for _, item := range f.Rules {
		r := model.EscalationRule{Tier: model.Tier(item.Tier), Priority: model.TicketPriority(item.Priority)}
		for _, s := range item.Steps {
			budget, err := time.ParseDuration(s.Budget)
			if err != nil {
				return nil, &model.ConfigurationError{Scope: "escalation_rules", Detail: fmt.Sprintf("rule %s/%s level %d: bad budget %q", item.Tier, item.Priority, s.Level, s.Budget)}
			}
			channels := make([]model.Channel, 0, len(s.Channels))
			for _, c := range s.Channels {
				channels = append(channels, model.Channel(c))
			}
			r.Steps = append(r.Steps, model.EscalationStep{Level: s.Level, ResponseBudget: budget, Channels: channels})
		}
		rules = append(rules, r)
	}
	engine, err := NewRuleEngine(rules)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("rule_count", len(rules)).Msg("loaded escalation rules from file")
	return engine, nil
}

// DefaultEngine returns a RuleEngine over the compiled-in catalog.
func DefaultEngine() *RuleEngine {
	engine, err := NewRuleEngine(DefaultRules())
	if err != nil {
		panic(err)
	}
	return engine
}
