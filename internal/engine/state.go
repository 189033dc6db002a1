package engine

import (
	"github.com/Noesis-Edu/noesis-core-sub001/internal/bkt"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/config"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/fsrs"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/transfer"
)

// learnerState holds everything the engine tracks for one learner.
// Nothing here is shared across learners or persisted outside of
// ExportState/ImportState.
type learnerState struct {
	mastery   *bkt.Model
	scheduler *fsrs.Scheduler
	memory    map[string]fsrs.State
	gate      *transfer.Gate

	attempts map[string]int

	activeSessionID string
	sessionConfig   config.PlannerConfig
}

func newLearnerState(cfg *config.Engine) (*learnerState, error) {
	mastery, err := bkt.New(cfg.BKT)
	if err != nil {
		return nil, err
	}

	return &learnerState{
		mastery:       mastery,
		scheduler:     fsrs.New(cfg.FSRS),
		memory:        make(map[string]fsrs.State),
		gate:          transfer.New(cfg.TransferGate),
		attempts:      make(map[string]int),
		sessionConfig: cfg.Planner,
	}, nil
}

func (ls *learnerState) ensureMemory(skillID string, nowMillis int64) fsrs.State {
	st, ok := ls.memory[skillID]
	if !ok {
		st = ls.scheduler.Initialize(nowMillis)
		ls.memory[skillID] = st
	}
	return st
}

func ratingFromOutcome(correct bool, responseTimeMs int64) fsrs.Rating {
	if !correct {
		return fsrs.RatingAgain
	}
	switch {
	case responseTimeMs < 3000:
		return fsrs.RatingEasy
	case responseTimeMs < 10000:
		return fsrs.RatingGood
	default:
		return fsrs.RatingHard
	}
}
