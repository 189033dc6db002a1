// Package fsrs implements the memory scheduler: a stability/difficulty
// model of long-term retention, used to decide when a previously
// practiced skill becomes due for review again. Shaped after the
// teacher's scheduler-service SM2Algorithm/SM2State (state struct +
// algorithm-as-method-set, urgency/due/analytics helpers), with the
// update math fully replaced by an FSRS-style retrievability model
// operating on millisecond timestamps instead of time.Time so it can
// be driven by the engine's injected clock.Clock.
package fsrs

import (
	"math"
	"sort"

	"github.com/Noesis-Edu/noesis-core-sub001/internal/config"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/errs"
)

const millisPerDay = 24 * 60 * 60 * 1000

// Rating is the 1-4 response quality scale: 1 Again, 2 Hard, 3 Good, 4 Easy.
type Rating int

const (
	RatingAgain Rating = 1
	RatingHard  Rating = 2
	RatingGood  Rating = 3
	RatingEasy  Rating = 4
)

func (r Rating) valid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

// Phase is a memory state's position in the new/learning/review/
// relearning lifecycle.
type Phase string

const (
	PhaseNew        Phase = "new"
	PhaseLearning   Phase = "learning"
	PhaseReview     Phase = "review"
	PhaseRelearning Phase = "relearning"
)

// State is one skill's memory state for a single learner.
type State struct {
	Stability        float64 `json:"stability"`
	Difficulty       float64 `json:"difficulty"`
	LastReviewMillis int64   `json:"lastReviewMillis"`
	DueMillis        int64   `json:"dueMillis"`
	Reps             int     `json:"reps"`
	SuccessCount     int     `json:"successCount"`
	FailureCount     int     `json:"failureCount"`
	Phase            Phase   `json:"state"`
}

// Scheduler computes memory-state transitions using FSRSConfig.
type Scheduler struct {
	cfg config.FSRSConfig
}

// New creates a Scheduler bound to the given configuration.
func New(cfg config.FSRSConfig) *Scheduler {
	return &Scheduler{cfg: cfg}
}

// Initialize returns the state for a skill that has never been
// reviewed: due immediately, at the configured initial difficulty.
func (s *Scheduler) Initialize(nowMillis int64) State {
	return State{
		Difficulty:       s.cfg.InitialDifficulty,
		LastReviewMillis: nowMillis,
		DueMillis:        nowMillis,
		Phase:            PhaseNew,
	}
}

// Retrievability returns R(t, S) = (1 + t/(9S))^-1, the probability the
// skill is still recalled at nowMillis given its current state.
func (s *Scheduler) Retrievability(state State, nowMillis int64) float64 {
	if state.Reps == 0 {
		return 0
	}
	if state.Stability <= 0 {
		return 0
	}
	elapsedDays := float64(nowMillis-state.LastReviewMillis) / millisPerDay
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	return 1 / (1 + elapsedDays/(9*state.Stability))
}

// IntervalDays converts a stability value into the review interval (in
// days) that achieves the configured requested retention.
func (s *Scheduler) IntervalDays(stability float64) float64 {
	retention := s.cfg.RequestedRetention

	var days float64
	switch {
	case retention >= 1:
		days = 0
	case retention <= 0:
		days = stability
	default:
		days = stability * 9 * (1/retention - 1)
	}

	if s.cfg.MaxIntervalDays > 0 && days > s.cfg.MaxIntervalDays {
		days = s.cfg.MaxIntervalDays
	}
	return days
}

// IsDue reports whether a skill's memory state is due for review.
func (s *Scheduler) IsDue(state State, nowMillis int64) bool {
	return nowMillis >= state.DueMillis
}

// OverdueMillis returns how many milliseconds past due a skill is.
// Negative values mean the skill is not yet due.
func (s *Scheduler) OverdueMillis(state State, nowMillis int64) int64 {
	return nowMillis - state.DueMillis
}

// ratingModifier scales stability growth for a recalled review by how
// easy the recall felt: 0.8 for a hard pass, 1.0 for good, 1.3 for easy.
func ratingModifier(r Rating) float64 {
	switch r {
	case RatingHard:
		return 0.8
	case RatingEasy:
		return 1.3
	default:
		return 1.0
	}
}

// Review applies one rating-based stability/difficulty update and
// returns the resulting state, with DueMillis advanced by the interval
// implied by the new stability.
func (s *Scheduler) Review(state State, rating Rating, nowMillis int64) (State, error) {
	if !rating.valid() {
		return State{}, errs.Invalid(errs.KindInvalidEvent, "rating", "rating must be in [1,4]")
	}

	next := state
	next.Difficulty = clampRange(
		state.Difficulty-(float64(rating)-3)*0.1*s.cfg.DifficultyDecay,
		0.1, 0.9,
	)

	switch {
	case rating == RatingAgain:
		next.Stability = s.cfg.InitialStability[0]
		if state.Phase == PhaseNew {
			next.Phase = PhaseLearning
		} else {
			next.Phase = PhaseRelearning
		}
	case state.Phase == PhaseNew || state.Phase == PhaseLearning:
		next.Stability = s.cfg.InitialStability[rating-1]
		if rating >= RatingGood {
			next.Phase = PhaseReview
		} else {
			next.Phase = PhaseLearning
		}
	default:
		// Previously review or relearning, and recalled (r>=2): grow
		// stability from the retrievability at the moment of recall —
		// a pass that beat a low expected retrievability is stronger
		// evidence of retention than one that barely needed recalling.
		r := s.Retrievability(state, nowMillis)
		growth := 1 + s.cfg.StabilityDecay*(1-next.Difficulty)*(1-r)
		next.Stability = math.Max(0.1, state.Stability*growth*ratingModifier(rating))
		next.Phase = PhaseReview
	}

	if rating == RatingAgain {
		next.FailureCount = state.FailureCount + 1
	} else {
		next.SuccessCount = state.SuccessCount + 1
	}

	next.Reps = state.Reps + 1
	next.LastReviewMillis = nowMillis
	next.DueMillis = nowMillis + int64(s.IntervalDays(next.Stability)*millisPerDay)
	return next, nil
}

// DueItem pairs a skill id with its memory state, for ordering.
type DueItem struct {
	SkillID string
	State   State
}

// OrderByOverdue sorts items by descending overdue amount (most overdue
// first), breaking ties lexicographically by skill id. Items that are
// not yet due are excluded.
func (s *Scheduler) OrderByOverdue(states map[string]State, nowMillis int64) []DueItem {
	items := make([]DueItem, 0, len(states))
	for id, st := range states {
		if s.IsDue(st, nowMillis) {
			items = append(items, DueItem{SkillID: id, State: st})
		}
	}

	sort.Slice(items, func(i, j int) bool {
		oi := s.OverdueMillis(items[i].State, nowMillis)
		oj := s.OverdueMillis(items[j].State, nowMillis)
		if oi != oj {
			return oi > oj
		}
		return items[i].SkillID < items[j].SkillID
	})

	return items
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
