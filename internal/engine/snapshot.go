package engine

import (
	"context"
	"encoding/json"

	"github.com/Noesis-Edu/noesis-core-sub001/internal/bkt"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/config"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/errs"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/fsrs"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/transfer"
)

// snapshotVersion is bumped whenever the snapshot shape changes in a
// way that breaks backward-compatible import.
const snapshotVersion = 1

// snapshot is the canonical on-the-wire shape of a learner's state.
// encoding/json marshals map keys in sorted order, which is what makes
// this canonical without any extra bookkeeping.
type snapshot struct {
	Version       int                            `json:"version"`
	LearnerID     string                         `json:"learnerId"`
	Mastery       map[string]bkt.State           `json:"mastery"`
	Memory        map[string]fsrs.State          `json:"memory"`
	Transfer      map[string]transfer.SkillState `json:"transfer"`
	Attempts      map[string]int                 `json:"attempts"`
	SessionConfig config.PlannerConfig           `json:"sessionConfig"`
}

// ExportState serializes a learner's full state to canonical JSON.
func (e *engine) ExportState(ctx context.Context, learnerID string) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ls, err := e.learner(learnerID)
	if err != nil {
		return nil, err
	}

	snap := snapshot{
		Version:       snapshotVersion,
		LearnerID:     learnerID,
		Mastery:       ls.mastery.Export(),
		Memory:        ls.memory,
		Transfer:      ls.gate.Export(),
		Attempts:      ls.attempts,
		SessionConfig: ls.sessionConfig,
	}
	return json.Marshal(snap)
}

// ImportState replaces a learner's full state from a snapshot produced
// by ExportState. A version mismatch is rejected rather than
// best-effort migrated.
func (e *engine) ImportState(ctx context.Context, learnerID string, data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return errs.Invalid(errs.KindMalformedEvent, "", "malformed snapshot JSON: "+err.Error())
	}
	if snap.Version != snapshotVersion {
		return errs.New(errs.KindStateVersionMismatch, "unsupported snapshot version").
			WithDetails(map[string]any{"got": snap.Version, "want": snapshotVersion})
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ls, err := newLearnerState(e.cfg)
	if err != nil {
		return err
	}

	ls.mastery.Import(snap.Mastery)
	if snap.Memory != nil {
		ls.memory = snap.Memory
	}
	ls.gate.Import(snap.Transfer)
	if snap.Attempts != nil {
		ls.attempts = snap.Attempts
	}
	ls.sessionConfig = snap.SessionConfig

	e.learners[learnerID] = ls
	return nil
}
