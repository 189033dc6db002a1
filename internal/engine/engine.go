// Package engine implements the facade that owns all per-learner
// state and routes inbound events to the BKT, FSRS, transfer-gate, and
// planner components. Grounded on the teacher's ProgressService
// interface-plus-struct pattern (services/user-service), adapted from
// a database-backed service to an in-memory, fully deterministic one:
// no repository, no cache, no context cancellation paths beyond
// threading ctx through for logging.
package engine

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Noesis-Edu/noesis-core-sub001/internal/bkt"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/clock"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/config"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/errs"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/events"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/fsrs"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/graph"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/idgen"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/logger"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/metrics"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/placement"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/planner"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/transfer"
)

// Engine is the facade every embedder drives: it accepts raw events,
// updates per-learner models, and answers planning/progress queries.
type Engine interface {
	ProcessEvent(ctx context.Context, raw []byte) error

	// Emit* build an event from typed arguments, stamp it with the
	// engine's own clock and id generator, and process it immediately —
	// an alternative to ProcessEvent for embedders who don't want to
	// manage timestamps and ids themselves.
	EmitSessionStart(ctx context.Context, learnerID, sessionID string, cfg *config.PlannerConfig) error
	EmitSessionEnd(ctx context.Context, learnerID, sessionID string, summary map[string]any) error
	EmitPractice(ctx context.Context, learnerID, skillID, itemID string, correct bool, responseTimeMs int64, errorCategory string) error
	EmitDiagnostic(ctx context.Context, learnerID string, results []events.DiagnosticResult) error
	EmitTransferTest(ctx context.Context, learnerID, skillID, testID, transferType string, score float64) error

	GetNextAction(ctx context.Context, learnerID string) (planner.Action, error)
	PlanSession(ctx context.Context, learnerID string) ([]planner.Action, error)
	GetLearnerProgress(ctx context.Context, learnerID string) (Progress, error)
	ExportState(ctx context.Context, learnerID string) ([]byte, error)
	ImportState(ctx context.Context, learnerID string, data []byte) error
}

type engine struct {
	mu sync.RWMutex

	cfg   *config.Engine
	graph *graph.Graph

	clock clock.Clock
	idGen idgen.Generator
	log   *logger.Logger
	rec   *metrics.Recorder

	factory  *events.Factory
	learners map[string]*learnerState
}

// Option configures optional facade collaborators.
type Option func(*engine)

// WithLogger attaches a logger; defaults to a no-op logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *engine) { e.log = l }
}

// WithMetrics attaches a Prometheus recorder; nil (the default) records nothing.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *engine) { e.rec = r }
}

// New builds the engine facade over a fixed skill graph and
// configuration, using the given clock and id generator for every
// timestamp/id it produces.
func New(skillGraph *graph.Graph, cfg *config.Engine, c clock.Clock, g idgen.Generator, opts ...Option) Engine {
	if cfg == nil {
		cfg = config.DefaultEngine()
	}

	e := &engine{
		cfg:      cfg,
		graph:    skillGraph,
		clock:    c,
		idGen:    g,
		log:      logger.Noop(),
		learners: make(map[string]*learnerState),
	}
	e.factory = events.NewFactory(c, g)

	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engine) learner(learnerID string) (*learnerState, error) {
	ls, ok := e.learners[learnerID]
	if !ok {
		return nil, errs.Invalid(errs.KindUnknownLearner, "learnerId", "no state recorded for learner "+learnerID)
	}
	return ls, nil
}

func (e *engine) ensureLearner(learnerID string) (*learnerState, error) {
	ls, ok := e.learners[learnerID]
	if ok {
		return ls, nil
	}
	ls, err := newLearnerState(e.cfg)
	if err != nil {
		return nil, err
	}
	e.learners[learnerID] = ls
	return ls, nil
}

// ProcessEvent validates raw JSON against the event schema and
// structural invariants before touching any state, then applies it.
// A rejected event leaves every learner's state untouched.
func (e *engine) ProcessEvent(ctx context.Context, raw []byte) error {
	if err := events.ValidateJSON(raw); err != nil {
		return err
	}

	var ev events.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return errs.Invalid(errs.KindMalformedEvent, "", "malformed event JSON: "+err.Error())
	}
	return e.dispatch(ctx, ev)
}

// emit stamps ev with the engine's own clock/id generator and dispatches
// it, for embedders who want the engine to own event timestamps and ids
// rather than supplying pre-stamped raw JSON.
func (e *engine) emit(ctx context.Context, ev events.Event) error {
	return e.dispatch(ctx, e.factory.Stamp(ev))
}

// dispatch validates ev's structural invariants, then applies it to the
// named learner's state. A rejected event leaves every learner's state
// untouched.
func (e *engine) dispatch(ctx context.Context, ev events.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	_, existed := e.learners[ev.LearnerID]
	ls, err := e.ensureLearner(ev.LearnerID)
	if err != nil {
		return err
	}

	if e.rec != nil {
		e.rec.ObserveEvent(string(ev.Type))
	}
	e.log.WithContext(logger.WithLearnerID(ctx, ev.LearnerID)).
		WithField("event_type", ev.Type).Debug("processing event")

	switch ev.Type {
	case events.TypeSessionStart:
		ls.activeSessionID = ev.SessionID
		if ev.Config != nil {
			ls.sessionConfig = *ev.Config
		}
	case events.TypeSessionEnd:
		ls.activeSessionID = ""
	case events.TypePractice:
		e.applyPractice(ls, ev)
	case events.TypeDiagnostic:
		if err := placement.Apply(ls.mastery, ev.Results); err != nil {
			if !existed {
				delete(e.learners, ev.LearnerID)
			}
			return err
		}
	case events.TypeTransferTest:
		score := 0.0
		if ev.Score != nil {
			score = *ev.Score
		}
		if err := ls.gate.EvaluateAttempt(ev.SkillID, ev.TestID, transfer.Kind(ev.TransferType), score, ev.Timestamp); err != nil {
			if !existed {
				delete(e.learners, ev.LearnerID)
			}
			return err
		}
	default:
		return errs.Invalid(errs.KindMalformedEvent, "type", "unknown event type: "+string(ev.Type))
	}

	return nil
}

// EmitPractice builds and processes a practice event using the engine's
// own clock and id generator.
func (e *engine) EmitPractice(ctx context.Context, learnerID, skillID, itemID string, correct bool, responseTimeMs int64, errorCategory string) error {
	return e.emit(ctx, e.factory.Practice(learnerID, skillID, itemID, correct, responseTimeMs, errorCategory))
}

// EmitDiagnostic builds and processes a diagnostic event using the
// engine's own clock and id generator.
func (e *engine) EmitDiagnostic(ctx context.Context, learnerID string, results []events.DiagnosticResult) error {
	return e.emit(ctx, e.factory.Diagnostic(learnerID, results))
}

// EmitTransferTest builds and processes a transfer-test event using the
// engine's own clock and id generator.
func (e *engine) EmitTransferTest(ctx context.Context, learnerID, skillID, testID, transferType string, score float64) error {
	return e.emit(ctx, e.factory.TransferTest(learnerID, skillID, testID, transferType, score))
}

// EmitSessionStart builds and processes a session_start event using the
// engine's own clock and id generator.
func (e *engine) EmitSessionStart(ctx context.Context, learnerID, sessionID string, cfg *config.PlannerConfig) error {
	return e.emit(ctx, e.factory.SessionStart(learnerID, sessionID, cfg))
}

// EmitSessionEnd builds and processes a session_end event using the
// engine's own clock and id generator.
func (e *engine) EmitSessionEnd(ctx context.Context, learnerID, sessionID string, summary map[string]any) error {
	return e.emit(ctx, e.factory.SessionEnd(learnerID, sessionID, summary))
}

func (e *engine) applyPractice(ls *learnerState, ev events.Event) {
	correct := ev.Correct != nil && *ev.Correct

	ls.attempts[ev.SkillID]++

	ls.mastery.Observe(ev.SkillID, correct)
	if e.rec != nil {
		e.rec.ObserveModelUpdate("bkt")
	}

	memState := ls.ensureMemory(ev.SkillID, ev.Timestamp)
	rating := ratingFromOutcome(correct, ev.ResponseTimeMs)
	next, err := ls.scheduler.Review(memState, rating, ev.Timestamp)
	if err == nil {
		ls.memory[ev.SkillID] = next
		if e.rec != nil {
			e.rec.ObserveModelUpdate("fsrs")
		}
	}

	ls.gate.RecordPractice(ev.SkillID)
}

func (e *engine) buildPlannerInputs(ls *learnerState) planner.Inputs {
	return planner.Inputs{
		Graph:     e.graph,
		Mastery:   ls.mastery,
		Memory:    ls.memory,
		Scheduler: ls.scheduler,
		Gate:      ls.gate,
		Attempts:  ls.attempts,
		Now:       e.clock.Now(),
		Config:    ls.sessionConfig,
	}
}

func (e *engine) GetNextAction(ctx context.Context, learnerID string) (planner.Action, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ls, err := e.learner(learnerID)
	if err != nil {
		return planner.Action{}, err
	}
	action := planner.GetNextAction(e.buildPlannerInputs(ls))
	if e.rec != nil {
		e.rec.ObserveAction(string(action.Type))
	}
	return action, nil
}

func (e *engine) PlanSession(ctx context.Context, learnerID string) ([]planner.Action, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ls, err := e.learner(learnerID)
	if err != nil {
		return nil, err
	}

	start := e.clock.Now()
	actions := planner.PlanSession(e.buildPlannerInputs(ls))
	if e.rec != nil {
		e.rec.ObservePlanningSeconds(float64(e.clock.Now()-start) / 1000)
		for _, a := range actions {
			e.rec.ObserveAction(string(a.Type))
		}
	}
	return actions, nil
}

// Progress summarizes one learner's standing across every skill in the
// graph: the spec's four aggregate figures (totalSkills, masteredSkills,
// avgPMastery, dueReviewCount) alongside the full per-skill breakdown.
type Progress struct {
	LearnerID      string                   `json:"learnerId"`
	TotalSkills    int                      `json:"totalSkills"`
	MasteredSkills int                      `json:"masteredSkills"`
	AvgPMastery    float64                  `json:"avgPMastery"`
	DueReviewCount int                      `json:"dueReviewCount"`
	Skills         map[string]SkillProgress `json:"skills"`
}

// SkillProgress is one skill's mastery/memory/transfer standing.
type SkillProgress struct {
	PMastery       float64         `json:"pMastery"`
	Mastered       bool            `json:"mastered"`
	Attempts       int             `json:"attempts"`
	Memory         *fsrs.State     `json:"memory,omitempty"`
	TransferStatus transfer.Status `json:"transferStatus"`
}

func (e *engine) GetLearnerProgress(ctx context.Context, learnerID string) (Progress, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ls, err := e.learner(learnerID)
	if err != nil {
		return Progress{}, err
	}

	ids := e.graph.GetTopologicalOrder()
	out := Progress{LearnerID: learnerID, Skills: make(map[string]SkillProgress, len(ids))}

	var pMasterySum float64
	now := e.clock.Now()
	for _, id := range ids {
		pMastery := ls.mastery.PMastery(id)
		mastered := ls.mastery.IsMastered(id, ls.sessionConfig.MasteryThreshold)

		sp := SkillProgress{
			PMastery:       pMastery,
			Mastered:       mastered,
			Attempts:       ls.attempts[id],
			TransferStatus: ls.gate.GetTransferStatus(id),
		}

		out.TotalSkills++
		pMasterySum += pMastery
		if mastered {
			out.MasteredSkills++
		}

		if mem, ok := ls.memory[id]; ok {
			memCopy := mem
			sp.Memory = &memCopy
			if ls.scheduler.IsDue(mem, now) {
				out.DueReviewCount++
			}
		}
		out.Skills[id] = sp
	}

	if out.TotalSkills > 0 {
		out.AvgPMastery = pMasterySum / float64(out.TotalSkills)
	}
	return out, nil
}
