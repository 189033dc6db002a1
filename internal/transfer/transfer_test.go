package transfer

import (
	"testing"

	"github.com/Noesis-Edu/noesis-core-sub001/internal/config"
)

func bothRequiredConfig() config.TransferGateConfig {
	return config.TransferGateConfig{
		RequireNearTransfer: true,
		RequireFarTransfer:  true,
		GracePeriodEvents:   2,
		PassThreshold:       0.7,
	}
}

func TestNewSkillStartsUnlockedDuringGracePeriod(t *testing.T) {
	g := New(bothRequiredConfig())
	if !g.IsUnlocked("addition") {
		t.Error("expected a fresh skill to be unlocked during its grace period")
	}
}

func TestGateBlocksAfterGracePeriodUntilTestsPass(t *testing.T) {
	g := New(bothRequiredConfig())
	g.RecordPractice("addition")
	g.RecordPractice("addition")

	if g.IsUnlocked("addition") {
		t.Error("expected skill to be blocked once grace period elapses without passing tests")
	}
}

func TestNeedsTestPrefersNearBeforeFar(t *testing.T) {
	g := New(bothRequiredConfig())
	g.RecordPractice("addition")
	g.RecordPractice("addition")

	kind, needed := g.NeedsTest("addition")
	if !needed || kind != KindNear {
		t.Errorf("expected near test required first, got kind=%s needed=%v", kind, needed)
	}

	if err := g.EvaluateAttempt("addition", "near-1", KindNear, 0.9, 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	kind, needed = g.NeedsTest("addition")
	if !needed || kind != KindFar {
		t.Errorf("expected far test required after near passes, got kind=%s needed=%v", kind, needed)
	}
}

func TestGateUnlocksOnceAllRequiredTestsPass(t *testing.T) {
	g := New(bothRequiredConfig())
	g.RecordPractice("addition")
	g.RecordPractice("addition")

	_ = g.EvaluateAttempt("addition", "near-1", KindNear, 0.9, 1000)
	_ = g.EvaluateAttempt("addition", "far-1", KindFar, 0.9, 2000)

	if !g.IsUnlocked("addition") {
		t.Error("expected skill to unlock once every required test passes")
	}
	if _, needed := g.NeedsTest("addition"); needed {
		t.Error("expected no further test required once unlocked")
	}
}

func TestEvaluateAttemptFailureDoesNotUnlock(t *testing.T) {
	g := New(bothRequiredConfig())
	g.RecordPractice("addition")
	g.RecordPractice("addition")

	if err := g.EvaluateAttempt("addition", "near-1", KindNear, 0.2, 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.IsUnlocked("addition") {
		t.Error("expected a failed attempt to leave the skill locked")
	}
}

func TestEvaluateAttemptRejectsUnknownKind(t *testing.T) {
	g := New(bothRequiredConfig())
	if err := g.EvaluateAttempt("addition", "near-1", Kind("sideways"), 0.9, 1000); err == nil {
		t.Error("expected error for unknown transfer kind")
	}
}

func TestGetNextTestIsDeterministic(t *testing.T) {
	g := New(bothRequiredConfig())
	for _, id := range []string{"zebra", "addition", "multiplication"} {
		g.RecordPractice(id)
		g.RecordPractice(id)
	}

	skillID, kind, found := g.GetNextTest([]string{"zebra", "addition", "multiplication"})
	if !found {
		t.Fatal("expected a test to be needed")
	}
	if skillID != "addition" || kind != KindNear {
		t.Errorf("expected addition/near first lexicographically, got %s/%s", skillID, kind)
	}
}

func TestGetNextTestReturnsNotFoundWhenNothingNeeded(t *testing.T) {
	g := New(config.TransferGateConfig{RequireNearTransfer: false, RequireFarTransfer: false, GracePeriodEvents: 0})
	_, _, found := g.GetNextTest([]string{"addition"})
	if found {
		t.Error("expected no test needed when neither near nor far is required")
	}
}

func TestEvaluateAttemptRegistersTestLazilyOnFirstAttempt(t *testing.T) {
	g := New(bothRequiredConfig())
	_ = g.EvaluateAttempt("addition", "near-1", KindNear, 0.9, 1000)

	status := g.GetTransferStatus("addition")
	if len(status.RequiredTests) != 1 || status.RequiredTests[0] != "near-1" {
		t.Errorf("expected near-1 to become the required near test on first sight, got %v", status.RequiredTests)
	}
}

func TestRequiredTestIsLexicographicallyFirstAmongMultiple(t *testing.T) {
	g := New(bothRequiredConfig())
	_ = g.EvaluateAttempt("addition", "near-zeta", KindNear, 0.9, 1000)
	_ = g.EvaluateAttempt("addition", "near-alpha", KindNear, 0.2, 2000)

	status := g.GetTransferStatus("addition")
	found := false
	for _, id := range status.RequiredTests {
		if id == "near-alpha" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected near-alpha (lexicographically first) among required tests, got %v", status.RequiredTests)
	}
}

func TestAttemptHistoryIsAppendOnlyAndTracksLastAttempt(t *testing.T) {
	g := New(bothRequiredConfig())
	_ = g.EvaluateAttempt("addition", "near-1", KindNear, 0.2, 1000)
	_ = g.EvaluateAttempt("addition", "near-1", KindNear, 0.9, 2000)

	status := g.GetTransferStatus("addition")
	if status.Attempts != 2 {
		t.Errorf("expected 2 recorded attempts, got %d", status.Attempts)
	}
	if status.LastAttempt == nil || status.LastAttempt.Timestamp != 2000 || !status.LastAttempt.Passed {
		t.Errorf("expected the most recent attempt to be the passing one at ts=2000, got %+v", status.LastAttempt)
	}
}

func TestGetTransferStatusReportsPendingAndPassed(t *testing.T) {
	g := New(bothRequiredConfig())
	g.RecordPractice("addition")
	g.RecordPractice("addition")
	_ = g.EvaluateAttempt("addition", "near-1", KindNear, 0.9, 1000)
	_ = g.EvaluateAttempt("addition", "far-1", KindFar, 0.2, 2000)

	status := g.GetTransferStatus("addition")
	if len(status.PassedTests) != 1 || status.PassedTests[0] != "near-1" {
		t.Errorf("expected near-1 to be passed, got %v", status.PassedTests)
	}
	if status.IsUnlocked {
		t.Error("expected skill to remain locked until far transfer is also passed")
	}
	if len(status.PendingTests) == 0 {
		t.Error("expected a far test to still be pending")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	g := New(bothRequiredConfig())
	g.RecordPractice("addition")
	_ = g.EvaluateAttempt("addition", "near-1", KindNear, 0.9, 1000)

	exported := g.Export()

	g2 := New(bothRequiredConfig())
	g2.Import(exported)

	before := g.GetTransferStatus("addition")
	after := g2.GetTransferStatus("addition")

	if before.IsUnlocked != after.IsUnlocked {
		t.Errorf("expected imported isUnlocked to match: before=%v after=%v", before.IsUnlocked, after.IsUnlocked)
	}
	if before.Attempts != after.Attempts {
		t.Errorf("expected imported attempts to match: before=%d after=%d", before.Attempts, after.Attempts)
	}
	if len(before.PassedTests) != len(after.PassedTests) {
		t.Errorf("expected imported passedTests to match: before=%v after=%v", before.PassedTests, after.PassedTests)
	}
	if (before.LastAttempt == nil) != (after.LastAttempt == nil) {
		t.Fatalf("expected imported lastAttempt presence to match")
	}
	if before.LastAttempt != nil && *before.LastAttempt != *after.LastAttempt {
		t.Errorf("expected imported lastAttempt to match: before=%+v after=%+v", *before.LastAttempt, *after.LastAttempt)
	}
}
