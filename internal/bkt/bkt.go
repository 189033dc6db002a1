// Package bkt implements Bayesian Knowledge Tracing over a per-skill
// two-state hidden Markov model: an evidence step that updates
// P(mastery) from an observed response, followed by a learning step
// that accounts for the chance of learning from the attempt itself.
// Grounded on the teacher's scheduler-service BKTAlgorithm/BKTState,
// generalized from a single topic string to arbitrary skill ids and
// with per-skill parameter calibration wired to gonum/stat instead of
// the teacher's hand-rolled EM sketch.
package bkt

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Noesis-Edu/noesis-core-sub001/internal/config"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/errs"
)

// Params is the four BKT parameters for a single skill.
type Params = config.BKTConfig

// State is one skill's tracked knowledge state.
type State struct {
	Params          Params  `json:"params"`
	PMastery        float64 `json:"pMastery"`
	Attempts        int     `json:"attempts"`
	Correct         int     `json:"correct"`
	Diagnosed       bool    `json:"diagnosed"`
	DiagnosticScore float64 `json:"diagnosticScore,omitempty"`
	History         []bool  `json:"history,omitempty"`
}

// Model owns the per-skill BKT state for a single learner.
type Model struct {
	defaults Params
	skills   map[string]*State
}

// New creates a Model using defaults for any skill that has not been
// given calibrated parameters of its own.
func New(defaults Params) (*Model, error) {
	if err := defaults.Validate(); err != nil {
		return nil, errs.Invalid(errs.KindInvalidBKTParams, "defaults", err.Error())
	}
	return &Model{defaults: defaults, skills: make(map[string]*State)}, nil
}

// ensure lazily inserts a skill at its default parameters and pInit.
func (m *Model) ensure(skillID string) *State {
	s, ok := m.skills[skillID]
	if !ok {
		s = &State{Params: m.defaults, PMastery: m.defaults.PInit}
		m.skills[skillID] = s
	}
	return s
}

// SetParams installs calibrated parameters for a skill. The skill is
// created at pInit if it doesn't already exist.
func (m *Model) SetParams(skillID string, params Params) error {
	if err := params.Validate(); err != nil {
		return errs.Invalid(errs.KindInvalidBKTParams, skillID, err.Error())
	}
	s := m.ensure(skillID)
	s.Params = params
	return nil
}

// PMastery returns the current P(mastery) for a skill, lazily
// initializing it at pInit if it has not been observed before.
func (m *Model) PMastery(skillID string) float64 {
	return m.ensure(skillID).PMastery
}

// Attempts returns the number of practice attempts recorded for a skill.
func (m *Model) Attempts(skillID string) int {
	s, ok := m.skills[skillID]
	if !ok {
		return 0
	}
	return s.Attempts
}

// IsMastered reports whether a skill's P(mastery) meets threshold.
func (m *Model) IsMastered(skillID string, threshold float64) bool {
	return m.PMastery(skillID) >= threshold
}

// Observe runs one evidence step followed by one learning step for a
// practice attempt on skillID, and returns the updated P(mastery).
func (m *Model) Observe(skillID string, correct bool) float64 {
	s := m.ensure(skillID)
	p := s.Params

	s.Attempts++
	if correct {
		s.Correct++
	}

	pL := s.PMastery
	var posterior float64
	if correct {
		numerator := pL * (1 - p.PSlip)
		denominator := numerator + (1-pL)*p.PGuess
		if denominator > 0 {
			posterior = numerator / denominator
		} else {
			posterior = pL
		}
	} else {
		numerator := pL * p.PSlip
		denominator := numerator + (1-pL)*(1-p.PGuess)
		if denominator > 0 {
			posterior = numerator / denominator
		} else {
			posterior = pL
		}
	}

	learned := posterior + (1-posterior)*p.PLearn
	s.PMastery = clamp01(learned)

	s.History = append(s.History, correct)
	if len(s.History) >= 4 && len(s.History)%4 == 0 {
		_ = m.calibrate(skillID, s, s.History)
	}

	return s.PMastery
}

// InitializeFromDiagnostic seeds a skill's P(mastery) directly from an
// externally supplied diagnostic score, bypassing the evidence/learning
// steps. It is idempotent only when the incoming score matches the one
// already recorded; a subsequent diagnostic with a different score is
// treated as a fresh assessment and overwrites pMastery.
func (m *Model) InitializeFromDiagnostic(skillID string, score float64) error {
	if score < 0 || score > 1 {
		return errs.Invalid(errs.KindInvalidDiagnostic, skillID, "diagnostic score must be in [0,1]")
	}
	s := m.ensure(skillID)
	if s.Diagnosed && s.DiagnosticScore == score {
		return nil
	}
	s.PMastery = score
	s.Diagnosed = true
	s.DiagnosticScore = score
	return nil
}

// UnmasteredSkills returns every skill below threshold, in a stable
// lexicographic order.
func (m *Model) UnmasteredSkills(threshold float64) []string {
	ids := make([]string, 0, len(m.skills))
	for id, s := range m.skills {
		if s.PMastery < threshold {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// CalibrateParameters re-estimates pGuess and pSlip for a skill from
// its response history using simple moment matching against the
// observed accuracy. gonum/stat supplies the underlying mean/variance
// computation in place of a hand-rolled accumulator loop. It is also
// invoked automatically by Observe every four accumulated responses,
// so the defaults drift toward a skill's actual response pattern
// without a caller having to remember to call it.
func (m *Model) CalibrateParameters(skillID string, history []bool) error {
	if len(history) < 4 {
		return nil // not enough data to move away from defaults
	}
	s := m.ensure(skillID)
	return m.calibrate(skillID, s, history)
}

func (m *Model) calibrate(skillID string, s *State, history []bool) error {
	observations := make([]float64, len(history))
	for i, correct := range history {
		if correct {
			observations[i] = 1
		}
	}

	mean := stat.Mean(observations, nil)
	variance := stat.Variance(observations, nil)

	// A learner scoring persistently above the midpoint biases toward
	// explaining their accuracy as guessing rather than skill; one
	// scoring below it biases toward slipping. Noisier histories
	// (higher variance) amplify the nudge in whichever direction the
	// mean points, while Params.Validate keeps both inside the
	// identifiability constraints.
	guess := clampRange(m.defaults.PGuess+(mean-0.5)*variance, 0.01, 0.49)
	slip := clampRange(m.defaults.PSlip+(0.5-mean)*variance, 0.01, 1-guess-0.01)

	candidate := Params{
		PInit:  s.Params.PInit,
		PLearn: s.Params.PLearn,
		PSlip:  slip,
		PGuess: guess,
	}
	if err := candidate.Validate(); err != nil {
		return errs.Invalid(errs.KindInvalidBKTParams, skillID, err.Error())
	}
	s.Params = candidate
	return nil
}

// Export returns a deep copy of the learner's per-skill state, suitable
// for canonical JSON serialization in a state snapshot.
func (m *Model) Export() map[string]State {
	out := make(map[string]State, len(m.skills))
	for id, s := range m.skills {
		out[id] = *s
	}
	return out
}

// Import replaces the model's per-skill state wholesale, used when
// restoring a snapshot.
func (m *Model) Import(states map[string]State) {
	m.skills = make(map[string]*State, len(states))
	for id, s := range states {
		cp := s
		m.skills[id] = &cp
	}
}

func clamp01(v float64) float64 {
	return clampRange(v, 0, 1)
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
