package placement

import (
	"testing"

	"github.com/Noesis-Edu/noesis-core-sub001/internal/bkt"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/config"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/errs"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/events"
)

func newModel(t *testing.T) *bkt.Model {
	t.Helper()
	m, err := bkt.New(config.DefaultBKTConfig())
	if err != nil {
		t.Fatalf("bkt.New failed: %v", err)
	}
	return m
}

func TestApplyRejectsEmptyResults(t *testing.T) {
	m := newModel(t)
	err := Apply(m, nil)
	if err == nil {
		t.Fatal("expected error for empty diagnostic results")
	}
	if !errs.Is(err, errs.KindInvalidDiagnostic) {
		t.Errorf("expected KindInvalidDiagnostic, got %v", err)
	}
}

func TestApplyRejectsEmptySkillID(t *testing.T) {
	m := newModel(t)
	err := Apply(m, []events.DiagnosticResult{{SkillID: "", Score: 0.5}})
	if err == nil {
		t.Fatal("expected error for empty skillId")
	}
}

func TestApplyRejectsDuplicateSkill(t *testing.T) {
	m := newModel(t)
	err := Apply(m, []events.DiagnosticResult{
		{SkillID: "addition", Score: 0.5},
		{SkillID: "addition", Score: 0.7},
	})
	if err == nil {
		t.Fatal("expected error for duplicate skill in one diagnostic")
	}
}

func TestApplyRejectsOutOfRangeScore(t *testing.T) {
	m := newModel(t)
	err := Apply(m, []events.DiagnosticResult{{SkillID: "addition", Score: 1.2}})
	if err == nil {
		t.Fatal("expected error for out-of-range score")
	}
}

func TestApplyRejectsInconsistentItemCounts(t *testing.T) {
	m := newModel(t)
	err := Apply(m, []events.DiagnosticResult{
		{SkillID: "addition", Score: 0.5, ItemsAttempted: 3, ItemsCorrect: 5},
	})
	if err == nil {
		t.Fatal("expected error when itemsCorrect exceeds itemsAttempted")
	}
}

func TestApplySeedsMasteryForEachSkill(t *testing.T) {
	m := newModel(t)
	err := Apply(m, []events.DiagnosticResult{
		{SkillID: "addition", Score: 0.8, ItemsAttempted: 10, ItemsCorrect: 8},
		{SkillID: "subtraction", Score: 0.4, ItemsAttempted: 10, ItemsCorrect: 4},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.PMastery("addition"); got != 0.8 {
		t.Errorf("expected addition mastery 0.8, got %f", got)
	}
	if got := m.PMastery("subtraction"); got != 0.4 {
		t.Errorf("expected subtraction mastery 0.4, got %f", got)
	}
}

func TestApplyIsIdempotentPerSkill(t *testing.T) {
	m := newModel(t)
	if err := Apply(m, []events.DiagnosticResult{{SkillID: "addition", Score: 0.6}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Apply(m, []events.DiagnosticResult{{SkillID: "addition", Score: 0.6}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.PMastery("addition"); got != 0.6 {
		t.Errorf("expected a repeated identical diagnostic to leave mastery at 0.6, got %f", got)
	}
}
