// Package planner implements the session planner: a deterministic,
// tiered priority policy that turns a learner's current skill graph,
// mastery state, memory schedule, and transfer-gate status into an
// ordered list of session actions. Grounded on the teacher's
// UnifiedScoringAlgorithm (component-score struct, weighted priority,
// human-readable Reason field) but replacing the weighted blend with
// five fixed tiers. GetNextAction applies strict tier precedence: due
// review always outranks transfer testing, which always outranks
// error-focused practice, and so on, with the priority score choosing
// only within the winning tier. PlanSession merges the candidates of
// every tier and orders them by priority alone.
package planner

import (
	"sort"

	"github.com/Noesis-Edu/noesis-core-sub001/internal/bkt"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/config"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/fsrs"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/graph"
	"github.com/Noesis-Edu/noesis-core-sub001/internal/transfer"
)

// Tier orders the five action categories plus the rest fallback; lower
// numbers are selected first.
type Tier int

const (
	TierDueReview Tier = iota
	TierTransferTest
	TierErrorFocus
	TierNewSkill
	TierConsolidation
	TierRest
)

// ActionType labels what a session action asks the learner to do.
type ActionType string

const (
	ActionReview       ActionType = "review"
	ActionTransferTest ActionType = "transfer_test"
	ActionPractice     ActionType = "practice"
	ActionConsolidate  ActionType = "consolidate"
	ActionRest         ActionType = "rest"
)

// Action is one recommended unit of session work.
type Action struct {
	Type     ActionType `json:"type"`
	SkillID  string     `json:"skillId,omitempty"`
	Tier     Tier       `json:"tier"`
	Priority float64    `json:"priority"`
	Reason   string     `json:"reason"`
}

// Inputs aggregates every piece of learner state the planner reads.
// None of it is owned by the planner — it is assembled fresh by the
// engine facade on every call.
type Inputs struct {
	Graph     *graph.Graph
	Mastery   *bkt.Model
	Memory    map[string]fsrs.State
	Scheduler *fsrs.Scheduler
	Gate      *transfer.Gate
	Attempts  map[string]int // total attempts per skill
	Now       int64
	Config    config.PlannerConfig
}

// PlanSession returns up to Config.TargetItems session actions,
// deduplicated by (type, skill) and sorted purely by descending
// priority (ties broken lexicographically by skill id) — tier only
// governs which formula produced a candidate's priority, not the final
// ordering. If no tier produces any candidate, a single rest action is
// returned.
func PlanSession(in Inputs) []Action {
	var candidates []Action
	candidates = append(candidates, dueReviewActions(in)...)
	candidates = append(candidates, transferTestActions(in)...)
	candidates = append(candidates, errorFocusActions(in)...)
	candidates = append(candidates, newSkillActions(in)...)
	candidates = append(candidates, consolidationActions(in)...)

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.SkillID < b.SkillID
	})

	seen := make(map[string]bool, len(candidates))
	deduped := make([]Action, 0, len(candidates))
	for _, a := range candidates {
		key := string(a.Type) + ":" + a.SkillID
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, a)
	}

	target := in.Config.TargetItems
	if target <= 0 {
		target = len(deduped)
	}
	if len(deduped) > target {
		deduped = deduped[:target]
	}

	if len(deduped) == 0 {
		return []Action{{Type: ActionRest, Tier: TierRest, Reason: "no outstanding work"}}
	}
	return deduped
}

// GetNextAction returns the single action from the highest-precedence
// tier that has any candidate at all: due review always outranks
// transfer testing, which always outranks error-focused practice, and
// so on. Within the winning tier, the candidate with the highest
// priority is returned.
func GetNextAction(in Inputs) Action {
	tiers := []func(Inputs) []Action{
		dueReviewActions,
		transferTestActions,
		errorFocusActions,
		newSkillActions,
		consolidationActions,
	}

	for _, tierFn := range tiers {
		actions := tierFn(in)
		if len(actions) == 0 {
			continue
		}
		sort.SliceStable(actions, func(i, j int) bool {
			a, b := actions[i], actions[j]
			if a.Priority != b.Priority {
				return a.Priority > b.Priority
			}
			return a.SkillID < b.SkillID
		})
		return actions[0]
	}

	return Action{Type: ActionRest, Tier: TierRest, Reason: "no outstanding work"}
}

func dueReviewActions(in Inputs) []Action {
	if in.Scheduler == nil {
		return nil
	}
	due := in.Scheduler.OrderByOverdue(in.Memory, in.Now)
	actions := make([]Action, 0, len(due))
	for _, item := range due {
		overdueDays := float64(in.Scheduler.OverdueMillis(item.State, in.Now)) / (24 * 60 * 60 * 1000)
		priority := 50 + overdueDays*in.Config.OverdueWeight
		if priority > 100 {
			priority = 100
		}
		actions = append(actions, Action{
			Type:     ActionReview,
			SkillID:  item.SkillID,
			Tier:     TierDueReview,
			Priority: priority,
			Reason:   "due for spaced review",
		})
	}
	return actions
}

func transferTestActions(in Inputs) []Action {
	if in.Gate == nil || in.Mastery == nil {
		return nil
	}

	var candidates []string
	for _, id := range in.Graph.GetTopologicalOrder() {
		if in.Mastery.PMastery(id) >= in.Config.TransferTestThreshold {
			candidates = append(candidates, id)
		}
	}

	skillID, kind, found := in.Gate.GetNextTest(candidates)
	if !found {
		return nil
	}
	return []Action{{
		Type:     ActionTransferTest,
		SkillID:  skillID,
		Tier:     TierTransferTest,
		Priority: 75,
		Reason:   string(kind) + " transfer test required",
	}}
}

// errorFocusActions surfaces skills whose memory state has fallen into
// relearning — repeated "Again" ratings on practice — ranked by how
// many times each has failed. This reads FSRS state directly rather
// than a separate error tally: relearning phase and failureCount are
// exactly the signal the tier needs, and FSRS already tracks both.
func errorFocusActions(in Inputs) []Action {
	if in.Mastery == nil {
		return nil
	}

	type candidate struct {
		id           string
		failureCount int
		priority     float64
	}

	var items []candidate
	for id, st := range in.Memory {
		if st.Phase != fsrs.PhaseRelearning {
			continue
		}
		if in.Mastery.IsMastered(id, in.Config.MasteryThreshold) {
			continue
		}
		items = append(items, candidate{
			id:           id,
			failureCount: st.FailureCount,
			priority:     60 + float64(st.FailureCount)*in.Config.ErrorWeight,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].failureCount != items[j].failureCount {
			return items[i].failureCount > items[j].failureCount
		}
		return items[i].id < items[j].id
	})

	limit := in.Config.MaxErrorFocusItems
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	actions := make([]Action, 0, limit)
	for _, c := range items[:limit] {
		actions = append(actions, Action{
			Type:     ActionPractice,
			SkillID:  c.id,
			Tier:     TierErrorFocus,
			Priority: c.priority,
			Reason:   "relearning after repeated failures",
		})
	}
	return actions
}

func newSkillActions(in Inputs) []Action {
	if in.Graph == nil || in.Mastery == nil {
		return nil
	}

	var actions []Action
	for _, id := range in.Graph.GetTopologicalOrder() {
		if in.Attempts[id] > 0 {
			continue
		}
		if in.Mastery.IsMastered(id, in.Config.MasteryThreshold) {
			continue
		}
		if !prerequisitesMastered(in, id) {
			continue
		}
		leverage := float64(in.Graph.LeverageOf(id))
		actions = append(actions, Action{
			Type:     ActionPractice,
			SkillID:  id,
			Tier:     TierNewSkill,
			Priority: 40 + leverage,
			Reason:   "unlocked and unlocks further skills",
		})
	}
	return actions
}

func prerequisitesMastered(in Inputs, skillID string) bool {
	prereqs, err := in.Graph.GetAllPrerequisites(skillID)
	if err != nil {
		return false
	}
	for _, p := range prereqs {
		if !in.Mastery.IsMastered(p, in.Config.MasteryThreshold) {
			return false
		}
	}
	return true
}

func consolidationActions(in Inputs) []Action {
	if in.Mastery == nil {
		return nil
	}

	var actions []Action
	for _, id := range in.Graph.GetTopologicalOrder() {
		if in.Attempts[id] == 0 {
			continue
		}
		p := in.Mastery.PMastery(id)
		if p >= in.Config.MasteryThreshold {
			continue
		}
		actions = append(actions, Action{
			Type:     ActionConsolidate,
			SkillID:  id,
			Tier:     TierConsolidation,
			Priority: 30 + p*10,
			Reason:   "reinforcement toward mastery threshold",
		})
	}
	return actions
}
