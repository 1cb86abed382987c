package escalation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scholarpath/slaops/internal/sla/model"
)

func TestNewRuleEngine_DefaultCatalog(t *testing.T) {
	engine, err := NewRuleEngine(DefaultRules())
	if err != nil {
		t.Fatalf("default catalog rejected: %v", err)
	}
	for _, tier := range model.AllTiers() {
		for _, prio := range []model.TicketPriority{model.PriorityP1, model.PriorityP2, model.PriorityP3} {
			steps, err := engine.Path(tier, prio)
			if err != nil {
				t.Fatalf("path %s/%s: %v", tier, prio, err)
			}
			if len(steps) == 0 {
				t.Fatalf("path %s/%s is empty", tier, prio)
			}
		}
	}
}

func TestPath_EnterpriseP1Ladder(t *testing.T) {
	engine := DefaultEngine()
	steps, err := engine.Path(model.TierEnterprise, model.PriorityP1)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 4 {
		t.Fatalf("enterprise P1 has 4 levels, got %d", len(steps))
	}
	if steps[0].ResponseBudget != 15*time.Minute {
		t.Fatalf("level 1 budget: expected 15m, got %v", steps[0].ResponseBudget)
	}
	last := steps[len(steps)-1]
	foundExec := false
	for _, c := range last.Channels {
		if c == model.ChannelExecutive {
			foundExec = true
		}
	}
	if !foundExec {
		t.Fatal("the terminal enterprise P1 step must include the executive channel")
	}
}

func TestNewRuleEngine_Validation(t *testing.T) {
	step := func(level int, budget time.Duration) model.EscalationStep {
		return model.EscalationStep{Level: level, ResponseBudget: budget, Channels: []model.Channel{model.ChannelEmail}}
	}
	cases := []struct {
		name  string
		rules []model.EscalationRule
	}{
		{"unknown tier", []model.EscalationRule{{Tier: "vip", Priority: model.PriorityP1, Steps: []model.EscalationStep{step(1, time.Hour)}}}},
		{"unknown priority", []model.EscalationRule{{Tier: model.TierStandard, Priority: "P9", Steps: []model.EscalationStep{step(1, time.Hour)}}}},
		{"no steps", []model.EscalationRule{{Tier: model.TierStandard, Priority: model.PriorityP1}}},
		{"non-increasing levels", []model.EscalationRule{{Tier: model.TierStandard, Priority: model.PriorityP1, Steps: []model.EscalationStep{step(1, time.Hour), step(1, time.Hour)}}}},
		{"non-positive budget", []model.EscalationRule{{Tier: model.TierStandard, Priority: model.PriorityP1, Steps: []model.EscalationStep{step(1, 0)}}}},
		{"no channels", []model.EscalationRule{{Tier: model.TierStandard, Priority: model.PriorityP1, Steps: []model.EscalationStep{{Level: 1, ResponseBudget: time.Hour}}}}},
		{"duplicate rule", []model.EscalationRule{
			{Tier: model.TierStandard, Priority: model.PriorityP1, Steps: []model.EscalationStep{step(1, time.Hour)}},
			{Tier: model.TierStandard, Priority: model.PriorityP1, Steps: []model.EscalationStep{step(1, time.Hour)}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewRuleEngine(tc.rules); !model.IsConfiguration(err) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestPathOrDefault_Fallback(t *testing.T) {
	engine := DefaultEngine()
	steps := engine.PathOrDefault(model.Tier("unknown"), model.PriorityP1)
	want, _ := engine.Path(model.TierStandard, model.PriorityP3)
	if len(steps) != len(want) || steps[0].ResponseBudget != want[0].ResponseBudget {
		t.Fatalf("fallback must be the standard/P3 ladder, got %+v", steps)
	}
}

func TestPathOrDefault_CatalogWithoutFallbackRule(t *testing.T) {
	engine, err := NewRuleEngine([]model.EscalationRule{{
		Tier:     model.TierEnterprise,
		Priority: model.PriorityP1,
		Steps:    []model.EscalationStep{{Level: 1, ResponseBudget: time.Minute, Channels: []model.Channel{model.ChannelPager}}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	steps := engine.PathOrDefault(model.TierStandard, model.PriorityP2)
	if len(steps) != 1 || steps[0].ResponseBudget <= 0 {
		t.Fatalf("a catalog without standard/P3 must still yield a usable ladder, got %+v", steps)
	}
}

func TestLoadRulesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yml")
	content := `rules:
  - tier: enterprise
    priority: P1
    steps:
      - level: 1
        budget: 10m
        channels: [chat, email]
      - level: 2
        budget: 30m
        channels: [pager]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	engine, err := LoadRulesFile(path)
	if err != nil {
		t.Fatalf("load rules file: %v", err)
	}
	steps, err := engine.Path(model.TierEnterprise, model.PriorityP1)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 || steps[0].ResponseBudget != 10*time.Minute || steps[1].Level != 2 {
		t.Fatalf("unexpected loaded ladder: %+v", steps)
	}
}

func TestLoadRulesFile_BadBudget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yml")
	content := `rules:
  - tier: enterprise
    priority: P1
    steps:
      - level: 1
        budget: soon
        channels: [email]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRulesFile(path); !model.IsConfiguration(err) {
		t.Fatalf("expected configuration error for bad budget, got %v", err)
	}
}
