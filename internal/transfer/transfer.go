// Package transfer implements the transfer gate: per-skill near/far
// transfer test requirements that must be satisfied before a skill is
// considered fully unlocked for downstream curricular use, with a
// grace period of practice events before the gate starts blocking.
// Grounded on the teacher's scheduler-service state-machine idiom
// (small struct + explicit status enum + one evaluation method per
// transition), adapted from mastery-state transitions to transfer-test
// gating, and extended with real TransferTest/TransferTestResult
// entities so the gate can track append-only attempt history across
// potentially many tests per skill and transfer kind.
package transfer

import (
	"sort"

	"github.com/Noesis-Edu/noesis-core-sub001/internal/config"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/errs"
)

// Kind is the transfer-test variety.
type Kind string

const (
	KindNear Kind = "near"
	KindFar  Kind = "far"
)

// TransferTest is one authored-externally, immutable test definition.
// The gate learns about a test lazily, the first time an attempt
// against its id is reported — there is no separate registration
// event in the wire model, so EvaluateAttempt treats a previously
// unseen testId as the test's point of definition, taking its passing
// score from the gate's configured pass threshold.
type TransferTest struct {
	ID           string  `json:"id"`
	SkillID      string  `json:"skillId"`
	TransferType Kind    `json:"transferType"`
	Context      string  `json:"context,omitempty"`
	PassingScore float64 `json:"passingScore"`
}

// TransferTestResult is one append-only attempt record against a test.
// Multiple attempts per test are allowed; nothing here is ever mutated
// after it is recorded.
type TransferTestResult struct {
	TestID    string  `json:"testId"`
	Passed    bool    `json:"passed"`
	Score     float64 `json:"score"`
	Timestamp int64   `json:"timestamp"`
}

// Status summarizes a skill's transfer-gate progress, matching the
// getTransferStatus shape: which tests are required, which of those
// have passed or are still pending, and the full attempt history.
type Status struct {
	IsUnlocked    bool                `json:"isUnlocked"`
	RequiredTests []string            `json:"requiredTests"`
	PassedTests   []string            `json:"passedTests"`
	PendingTests  []string            `json:"pendingTests"`
	Attempts      int                 `json:"attempts"`
	LastAttempt   *TransferTestResult `json:"lastAttempt,omitempty"`
}

// skillState is the gate's internal per-skill bookkeeping: every test
// registered against the skill (by kind, for lexicographic-first
// selection), the full append-only result log, and the practice-event
// count that drives the grace period.
type skillState struct {
	testsByKind    map[Kind]map[string]*TransferTest
	results        []TransferTestResult
	passedKinds    map[Kind]bool
	practiceEvents int
}

func newSkillState() *skillState {
	return &skillState{
		testsByKind: make(map[Kind]map[string]*TransferTest),
		passedKinds: make(map[Kind]bool),
	}
}

// Gate tracks transfer-test status for every skill of a single learner.
type Gate struct {
	cfg    config.TransferGateConfig
	skills map[string]*skillState
}

// New creates a Gate bound to the given configuration.
func New(cfg config.TransferGateConfig) *Gate {
	return &Gate{cfg: cfg, skills: make(map[string]*skillState)}
}

func (g *Gate) ensure(skillID string) *skillState {
	st, ok := g.skills[skillID]
	if !ok {
		st = newSkillState()
		g.skills[skillID] = st
	}
	return st
}

func (g *Gate) requiredKinds() []Kind {
	var kinds []Kind
	if g.cfg.RequireNearTransfer {
		kinds = append(kinds, KindNear)
	}
	if g.cfg.RequireFarTransfer {
		kinds = append(kinds, KindFar)
	}
	return kinds
}

// RecordPractice increments a skill's practice-event count, advancing
// it toward (and eventually past) its grace period.
func (g *Gate) RecordPractice(skillID string) {
	g.ensure(skillID).practiceEvents++
}

// EvaluateAttempt records the outcome of one attempt at testID against
// skillID. The test is registered on first sight, at the gate's
// configured pass threshold; passed is computed here from score
// against that threshold rather than accepted pre-computed, so every
// attempt — first or repeat — is judged consistently.
func (g *Gate) EvaluateAttempt(skillID, testID string, kind Kind, score float64, timestamp int64) error {
	if kind != KindNear && kind != KindFar {
		return errs.Invalid(errs.KindInvalidEvent, "transferType", "transferType must be 'near' or 'far'")
	}

	st := g.ensure(skillID)
	byKind, ok := st.testsByKind[kind]
	if !ok {
		byKind = make(map[string]*TransferTest)
		st.testsByKind[kind] = byKind
	}
	test, ok := byKind[testID]
	if !ok {
		test = &TransferTest{
			ID:           testID,
			SkillID:      skillID,
			TransferType: kind,
			PassingScore: g.cfg.PassThreshold,
		}
		byKind[testID] = test
	}

	passed := score >= test.PassingScore
	st.results = append(st.results, TransferTestResult{
		TestID:    testID,
		Passed:    passed,
		Score:     score,
		Timestamp: timestamp,
	})
	if passed {
		st.passedKinds[kind] = true
	}
	return nil
}

// requiredTestID returns the lexicographically-first test id
// registered for a (skill, kind) pair, since the spec requires
// selecting the first test among potentially many when more than one
// has been registered. Returns "" if no test of that kind has been
// seen yet.
func (st *skillState) requiredTestID(kind Kind) string {
	byKind := st.testsByKind[kind]
	if len(byKind) == 0 {
		return ""
	}
	ids := make([]string, 0, len(byKind))
	for id := range byKind {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[0]
}

func (st *skillState) unlocked(kinds []Kind) bool {
	for _, k := range kinds {
		if !st.passedKinds[k] {
			return false
		}
	}
	return true
}

func (st *skillState) inGracePeriod(gracePeriod int) bool {
	return st.practiceEvents < gracePeriod
}

// GetTransferStatus returns a skill's current gate status in the
// documented shape.
func (g *Gate) GetTransferStatus(skillID string) Status {
	st := g.ensure(skillID)
	kinds := g.requiredKinds()

	var required, passed, pending []string
	for _, k := range kinds {
		id := st.requiredTestID(k)
		if id == "" {
			continue
		}
		required = append(required, id)
		if st.passedKinds[k] {
			passed = append(passed, id)
		} else {
			pending = append(pending, id)
		}
	}

	status := Status{
		IsUnlocked:    st.unlocked(kinds) || st.inGracePeriod(g.cfg.GracePeriodEvents),
		RequiredTests: required,
		PassedTests:   passed,
		PendingTests:  pending,
		Attempts:      len(st.results),
	}
	if n := len(st.results); n > 0 {
		last := st.results[n-1]
		status.LastAttempt = &last
	}
	return status
}

// IsUnlocked reports whether a skill is currently unlocked: either it
// has satisfied its required tests, or it is still inside its grace
// period.
func (g *Gate) IsUnlocked(skillID string) bool {
	st := g.ensure(skillID)
	kinds := g.requiredKinds()
	return st.unlocked(kinds) || st.inGracePeriod(g.cfg.GracePeriodEvents)
}

// NeedsTest reports whether a skill currently requires a transfer test
// to proceed (grace period elapsed, required kind not yet passed), and
// which kind should be attempted next. Near transfer is always
// resolved before far transfer when both are required.
func (g *Gate) NeedsTest(skillID string) (kind Kind, needed bool) {
	st := g.ensure(skillID)
	if st.inGracePeriod(g.cfg.GracePeriodEvents) {
		return "", false
	}
	if g.cfg.RequireNearTransfer && !st.passedKinds[KindNear] {
		return KindNear, true
	}
	if g.cfg.RequireFarTransfer && !st.passedKinds[KindFar] {
		return KindFar, true
	}
	return "", false
}

// GetNextTest returns the next skill (in lexicographic order for
// determinism) that needs a transfer test, and which kind.
func (g *Gate) GetNextTest(skillIDs []string) (skillID string, kind Kind, found bool) {
	ordered := append([]string(nil), skillIDs...)
	sort.Strings(ordered)
	for _, id := range ordered {
		if k, needed := g.NeedsTest(id); needed {
			return id, k, true
		}
	}
	return "", "", false
}

// SkillState is the canonical-JSON snapshot shape for one skill's
// transfer-gate state, independent of map iteration order.
type SkillState struct {
	Tests          []TransferTest       `json:"tests"`
	Results        []TransferTestResult `json:"results"`
	PracticeEvents int                  `json:"practiceEvents"`
}

// Export returns a deep copy of the gate's per-skill state, for
// canonical JSON serialization in a state snapshot.
func (g *Gate) Export() map[string]SkillState {
	out := make(map[string]SkillState, len(g.skills))
	for id, st := range g.skills {
		var tests []TransferTest
		for _, byKind := range st.testsByKind {
			for _, t := range byKind {
				tests = append(tests, *t)
			}
		}
		sort.Slice(tests, func(i, j int) bool { return tests[i].ID < tests[j].ID })

		out[id] = SkillState{
			Tests:          tests,
			Results:        append([]TransferTestResult(nil), st.results...),
			PracticeEvents: st.practiceEvents,
		}
	}
	return out
}

// Import replaces the gate's per-skill state wholesale, used when
// restoring a snapshot.
func (g *Gate) Import(states map[string]SkillState) {
	g.skills = make(map[string]*skillState, len(states))
	for id, es := range states {
		st := newSkillState()
		kindByTestID := make(map[string]Kind, len(es.Tests))

		for _, t := range es.Tests {
			t := t
			byKind, ok := st.testsByKind[t.TransferType]
			if !ok {
				byKind = make(map[string]*TransferTest)
				st.testsByKind[t.TransferType] = byKind
			}
			byKind[t.ID] = &t
			kindByTestID[t.ID] = t.TransferType
		}

		st.results = append([]TransferTestResult(nil), es.Results...)
		for _, r := range st.results {
			if r.Passed {
				if kind, ok := kindByTestID[r.TestID]; ok {
					st.passedKinds[kind] = true
				}
			}
		}
		st.practiceEvents = es.PracticeEvents
		g.skills[id] = st
	}
}
