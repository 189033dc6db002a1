package planner

import (
	"testing"

	"github.com/Noesis-Edu/noesis-core-sub001/internal/bkt"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/config"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/fsrs"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/graph"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/transfer"
)

func TestPlanSessionFallsBackToRestWhenNothingOutstanding(t *testing.T) {
	in := Inputs{
		Graph:  graph.New(),
		Config: config.DefaultPlannerConfig(),
	}
	actions := PlanSession(in)
	if len(actions) != 1 || actions[0].Type != ActionRest {
		t.Fatalf("expected a single rest action, got %v", actions)
	}
}

func buildTieredScenario(t *testing.T) Inputs {
	t.Helper()

	g := graph.New()
	for _, id := range []string{"alpha", "bravo", "charlie", "delta", "echo"} {
		if err := g.AddSkill(graph.Skill{ID: id}); err != nil {
			t.Fatalf("AddSkill(%s): %v", id, err)
		}
	}

	mastery, err := bkt.New(config.DefaultBKTConfig())
	if err != nil {
		t.Fatalf("bkt.New: %v", err)
	}
	if err := mastery.InitializeFromDiagnostic("delta", 0.9); err != nil {
		t.Fatalf("seed delta: %v", err)
	}
	if err := mastery.InitializeFromDiagnostic("bravo", 0.3); err != nil {
		t.Fatalf("seed bravo: %v", err)
	}
	if err := mastery.InitializeFromDiagnostic("echo", 0.2); err != nil {
		t.Fatalf("seed echo: %v", err)
	}

	scheduler := fsrs.New(config.DefaultFSRSConfig())
	now := int64(100 * 24 * 60 * 60 * 1000)
	memory := map[string]fsrs.State{
		"charlie": {DueMillis: now - 5*24*60*60*1000, Reps: 1, Stability: 1},
		"echo":    {DueMillis: now + 10*24*60*60*1000, Reps: 3, Stability: 1, Phase: fsrs.PhaseRelearning, FailureCount: 4},
	}

	gate := transfer.New(config.TransferGateConfig{
		RequireNearTransfer: true,
		GracePeriodEvents:   0,
	})

	cfg := config.DefaultPlannerConfig()
	cfg.TargetItems = 10

	return Inputs{
		Graph:     g,
		Mastery:   mastery,
		Memory:    memory,
		Scheduler: scheduler,
		Gate:      gate,
		Attempts:  map[string]int{"bravo": 1, "echo": 5},
		Now:       now,
		Config:    cfg,
	}
}

func hasAction(actions []Action, skillID string, tier Tier) bool {
	for _, a := range actions {
		if a.SkillID == skillID && a.Tier == tier {
			return true
		}
	}
	return false
}

func TestPlanSessionOrdersByTier(t *testing.T) {
	in := buildTieredScenario(t)
	actions := PlanSession(in)

	// A skill can legitimately surface in more than one tier (e.g. it is
	// both due for review and shy of full mastery) — assert each
	// expected tier is represented rather than that it is the skill's
	// only action.
	if !hasAction(actions, "charlie", TierDueReview) {
		t.Error("expected charlie to have a TierDueReview action")
	}
	if !hasAction(actions, "delta", TierTransferTest) {
		t.Error("expected delta to have a TierTransferTest action")
	}
	if !hasAction(actions, "echo", TierErrorFocus) {
		t.Error("expected echo to have a TierErrorFocus action")
	}
	if !hasAction(actions, "alpha", TierNewSkill) {
		t.Error("expected alpha to have a TierNewSkill action")
	}

	for i := 1; i < len(actions); i++ {
		if actions[i-1].Priority < actions[i].Priority {
			t.Fatalf("actions not sorted by descending priority: %v", actions)
		}
	}
}

func TestPlanSessionTruncatesToTargetItems(t *testing.T) {
	in := buildTieredScenario(t)
	in.Config.TargetItems = 2
	actions := PlanSession(in)
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	// delta's fixed transfer-test priority (75) and echo's error-focus
	// priority (60+4*1.5=66) are the two highest in this scenario —
	// ahead of charlie's due-review priority (50+5*2=60).
	if actions[0].Tier != TierTransferTest || actions[1].Tier != TierErrorFocus {
		t.Errorf("expected the two highest-priority actions to survive truncation, got %v", actions)
	}
}

func TestPlanSessionDedupesByTypeAndSkill(t *testing.T) {
	in := buildTieredScenario(t)
	actions := PlanSession(in)

	seen := make(map[string]bool)
	for _, a := range actions {
		key := string(a.Type) + ":" + a.SkillID
		if seen[key] {
			t.Fatalf("duplicate action for %s", key)
		}
		seen[key] = true
	}
}

func TestGetNextActionPrefersEarliestTier(t *testing.T) {
	in := buildTieredScenario(t)
	action := GetNextAction(in)
	if action.SkillID != "charlie" {
		t.Errorf("expected charlie (due review) to be the next action, got %s (%v)", action.SkillID, action.Tier)
	}
	// GetNextAction must not mutate the caller's Config.
	if in.Config.TargetItems != 10 {
		t.Errorf("expected Config.TargetItems to be unmodified, got %d", in.Config.TargetItems)
	}
}

func TestErrorFocusRespectsMaxItemsAndMasteryExclusion(t *testing.T) {
	g := graph.New()
	for _, id := range []string{"a", "b", "c"} {
		_ = g.AddSkill(graph.Skill{ID: id})
	}
	mastery, _ := bkt.New(config.DefaultBKTConfig())
	_ = mastery.InitializeFromDiagnostic("a", 0.95) // mastered, should be excluded despite relearning

	cfg := config.DefaultPlannerConfig()
	cfg.MaxErrorFocusItems = 1

	in := Inputs{
		Graph:   g,
		Mastery: mastery,
		Memory: map[string]fsrs.State{
			"a": {Phase: fsrs.PhaseRelearning, FailureCount: 5},
			"b": {Phase: fsrs.PhaseRelearning, FailureCount: 3},
			"c": {Phase: fsrs.PhaseRelearning, FailureCount: 1},
		},
		Attempts: map[string]int{"a": 5, "b": 5, "c": 5},
		Config:   cfg,
	}

	actions := errorFocusActions(in)
	if len(actions) != 1 {
		t.Fatalf("expected exactly 1 error-focus action (MaxErrorFocusItems=1), got %d", len(actions))
	}
	if actions[0].SkillID != "b" {
		t.Errorf("expected highest-failureCount unmastered skill 'b', got %s", actions[0].SkillID)
	}
}

func TestNewSkillActionsRequirePrerequisitesMastered(t *testing.T) {
	g := graph.New()
	_ = g.AddSkill(graph.Skill{ID: "addition"})
	_ = g.AddSkill(graph.Skill{ID: "multiplication", Prerequisites: []string{"addition"}})

	mastery, _ := bkt.New(config.DefaultBKTConfig())

	in := Inputs{
		Graph:    g,
		Mastery:  mastery,
		Attempts: map[string]int{},
		Config:   config.DefaultPlannerConfig(),
	}

	actions := newSkillActions(in)
	ids := make(map[string]bool, len(actions))
	for _, a := range actions {
		ids[a.SkillID] = true
	}
	if !ids["addition"] {
		t.Error("expected addition (no prerequisites) to be a new-skill candidate")
	}
	if ids["multiplication"] {
		t.Error("did not expect multiplication to be a candidate before addition is mastered")
	}
}
