// Package events defines the engine's input event model and the
// factory that stamps ids and timestamps on the way in. Grounded on
// the teacher's event-service ingestion path and on the schema-cache
// validation pattern in abhisek-mathiz's internal/llm/validate.go,
// adapted from validating LLM responses to validating inbound
// learner events.
package events

import (
	"github.com/Noesis-Edu/noesis-core-sub001/internal/clock"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/config"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/errs"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/idgen"
)

// Type discriminates the event variants from spec §3.
type Type string

const (
	TypeSessionStart Type = "session_start"
	TypeSessionEnd   Type = "session_end"
	TypePractice     Type = "practice"
	TypeDiagnostic   Type = "diagnostic"
	TypeTransferTest Type = "transfer_test"
)

// DiagnosticResult is one skill's score within a diagnostic event.
type DiagnosticResult struct {
	SkillID        string  `json:"skillId"`
	Score          float64 `json:"score"`
	ItemsAttempted int     `json:"itemsAttempted"`
	ItemsCorrect   int     `json:"itemsCorrect"`
}

// Event is the single wire shape for every inbound event. Only the
// fields relevant to Type are populated; the rest are left at their
// zero value and omitted from JSON.
type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Timestamp int64  `json:"timestamp"`
	LearnerID string `json:"learnerId"`

	// session_start
	SessionID string                `json:"sessionId,omitempty"`
	Config    *config.PlannerConfig `json:"config,omitempty"`

	// session_end
	Summary map[string]any `json:"summary,omitempty"`

	// practice
	SkillID        string `json:"skillId,omitempty"`
	ItemID         string `json:"itemId,omitempty"`
	Correct        *bool  `json:"correct,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs,omitempty"`
	ErrorCategory  string `json:"errorCategory,omitempty"`

	// diagnostic
	Results []DiagnosticResult `json:"results,omitempty"`

	// transfer_test
	TestID       string   `json:"testId,omitempty"`
	TransferType string   `json:"transferType,omitempty"`
	Score        *float64 `json:"score,omitempty"`
}

// Factory stamps inbound events with an id and timestamp using the
// engine's injected clock and id generator, mirroring spec §8's
// dependency-injected collaborators.
type Factory struct {
	clock clock.Clock
	idGen idgen.Generator
}

// NewFactory builds a Factory from the engine's clock/idGen collaborators.
func NewFactory(c clock.Clock, g idgen.Generator) *Factory {
	return &Factory{clock: c, idGen: g}
}

// Stamp assigns an id and timestamp to an event shaped by the caller,
// leaving every other field untouched.
func (f *Factory) Stamp(e Event) Event {
	e.ID = f.idGen.Next()
	e.Timestamp = f.clock.Now()
	return e
}

// SessionStart builds a stamped session_start event.
func (f *Factory) SessionStart(learnerID, sessionID string, cfg *config.PlannerConfig) Event {
	return f.Stamp(Event{
		Type:      TypeSessionStart,
		LearnerID: learnerID,
		SessionID: sessionID,
		Config:    cfg,
	})
}

// SessionEnd builds a stamped session_end event.
func (f *Factory) SessionEnd(learnerID, sessionID string, summary map[string]any) Event {
	return f.Stamp(Event{
		Type:      TypeSessionEnd,
		LearnerID: learnerID,
		SessionID: sessionID,
		Summary:   summary,
	})
}

// Practice builds a stamped practice event.
func (f *Factory) Practice(learnerID, skillID, itemID string, correct bool, responseTimeMs int64, errorCategory string) Event {
	c := correct
	return f.Stamp(Event{
		Type:           TypePractice,
		LearnerID:      learnerID,
		SkillID:        skillID,
		ItemID:         itemID,
		Correct:        &c,
		ResponseTimeMs: responseTimeMs,
		ErrorCategory:  errorCategory,
	})
}

// Diagnostic builds a stamped diagnostic event.
func (f *Factory) Diagnostic(learnerID string, results []DiagnosticResult) Event {
	return f.Stamp(Event{
		Type:      TypeDiagnostic,
		LearnerID: learnerID,
		Results:   results,
	})
}

// TransferTest builds a stamped transfer_test event.
func (f *Factory) TransferTest(learnerID, skillID, testID, transferType string, score float64) Event {
	s := score
	return f.Stamp(Event{
		Type:         TypeTransferTest,
		LearnerID:    learnerID,
		SkillID:      skillID,
		TestID:       testID,
		TransferType: transferType,
		Score:        &s,
	})
}

// Validate performs structural validation beyond the JSON schema:
// field-level invariants the schema can't express cleanly (cross-field
// relationships, numeric ranges tied to Type).
func (e Event) Validate() error {
	if e.LearnerID == "" {
		return errs.Invalid(errs.KindInvalidEvent, "learnerId", "learnerId must not be empty")
	}

	switch e.Type {
	case TypeSessionStart:
		if e.SessionID == "" {
			return errs.Invalid(errs.KindInvalidEvent, "sessionId", "sessionId must not be empty")
		}
	case TypeSessionEnd:
		if e.SessionID == "" {
			return errs.Invalid(errs.KindInvalidEvent, "sessionId", "sessionId must not be empty")
		}
	case TypePractice:
		if e.SkillID == "" {
			return errs.Invalid(errs.KindInvalidEvent, "skillId", "skillId must not be empty")
		}
		if e.ItemID == "" {
			return errs.Invalid(errs.KindInvalidEvent, "itemId", "itemId must not be empty")
		}
		if e.Correct == nil {
			return errs.Invalid(errs.KindInvalidEvent, "correct", "correct must be set")
		}
		if e.ResponseTimeMs < 0 {
			return errs.Invalid(errs.KindInvalidEvent, "responseTimeMs", "responseTimeMs must be >= 0")
		}
	case TypeDiagnostic:
		if len(e.Results) == 0 {
			return errs.Invalid(errs.KindInvalidEvent, "results", "results must not be empty")
		}
		for _, r := range e.Results {
			if r.SkillID == "" {
				return errs.Invalid(errs.KindInvalidEvent, "results[].skillId", "skillId must not be empty")
			}
			if r.Score < 0 || r.Score > 1 {
				return errs.Invalid(errs.KindInvalidEvent, "results[].score", "score must be in [0,1]")
			}
		}
	case TypeTransferTest:
		if e.SkillID == "" {
			return errs.Invalid(errs.KindInvalidEvent, "skillId", "skillId must not be empty")
		}
		if e.TestID == "" {
			return errs.Invalid(errs.KindInvalidEvent, "testId", "testId must not be empty")
		}
		if e.TransferType != "near" && e.TransferType != "far" {
			return errs.Invalid(errs.KindInvalidEvent, "transferType", "transferType must be 'near' or 'far'")
		}
		if e.Score == nil || *e.Score < 0 || *e.Score > 1 {
			return errs.Invalid(errs.KindInvalidEvent, "score", "score must be in [0,1]")
		}
	default:
		return errs.Invalid(errs.KindMalformedEvent, "type", "unknown event type: "+string(e.Type))
	}

	return nil
}
