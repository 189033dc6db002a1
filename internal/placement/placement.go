// Package placement validates diagnostic assessment results and seeds
// initial per-skill mastery from them. Deliberately thin: the teacher's
// placement.go runs a full adaptive IRT/CAT item-selection loop, but
// here diagnostic scores arrive pre-computed from the caller, so this
// package's job is limited to validation and one-shot delegation into
// the BKT model's diagnostic seeding path.
package placement

import (
	"github.com/Noesis-Edu/noesis-core-sub001/internal/bkt"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/errs"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/events"
)

// Apply validates and applies a diagnostic event's per-skill results to
// the learner's BKT model. A repeat diagnostic for an already-diagnosed
// skill is a no-op only when its score matches the one already
// recorded; a different score is treated as a fresh assessment and
// overwrites the skill's pMastery.
func Apply(model *bkt.Model, results []events.DiagnosticResult) error {
	if len(results) == 0 {
		return errs.New(errs.KindInvalidDiagnostic, "diagnostic must contain at least one result")
	}

	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if r.SkillID == "" {
			return errs.Invalid(errs.KindInvalidDiagnostic, "skillId", "skillId must not be empty")
		}
		if seen[r.SkillID] {
			return errs.Invalid(errs.KindInvalidDiagnostic, r.SkillID, "duplicate skill in diagnostic results")
		}
		seen[r.SkillID] = true

		if r.Score < 0 || r.Score > 1 {
			return errs.Invalid(errs.KindInvalidDiagnostic, r.SkillID, "score must be in [0,1]")
		}
		if r.ItemsAttempted < 0 || r.ItemsCorrect < 0 || r.ItemsCorrect > r.ItemsAttempted {
			return errs.Invalid(errs.KindInvalidDiagnostic, r.SkillID, "itemsCorrect must be in [0, itemsAttempted]")
		}
	}

	for _, r := range results {
		if err := model.InitializeFromDiagnostic(r.SkillID, r.Score); err != nil {
			return err
		}
	}

	return nil
}
