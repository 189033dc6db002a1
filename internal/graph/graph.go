// Package graph implements the prerequisite skill graph: a DAG of
// skills with deterministic topological ordering, prerequisite
// closures, and dependent lookups. Grounded on the flat
// Prerequisites []string / dependencies map[string][]string shape
// sketched in the curriculum-learner examples in the retrieval pack,
// built out into a full DFS-validated DAG in the teacher's naming and
// error-handling idiom.
package graph

import (
	"sort"

	"github.com/Noesis-Edu/noesis-core-sub001/internal/errs"
)

// Skill is immutable after it is added to a Graph.
type Skill struct {
	ID            string
	Name          string
	Prerequisites []string
}

// Graph is a DAG of skills keyed by id.
type Graph struct {
	skills map[string]Skill
	order  []string // cached topological order; nil until computed
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{skills: make(map[string]Skill)}
}

// AddSkill adds a single skill to the graph. Every prerequisite must
// already be present — this is the incremental build path, which
// guarantees acyclicity by construction (a new node can only point at
// already-existing nodes, so no back-edge can ever form).
func (g *Graph) AddSkill(skill Skill) error {
	if _, exists := g.skills[skill.ID]; exists {
		return errs.Invalid(errs.KindInvalidGraph, skill.ID, "duplicate skill id")
	}
	for _, p := range skill.Prerequisites {
		if _, ok := g.skills[p]; !ok {
			return errs.Invalid(errs.KindInvalidGraph, skill.ID, "unknown prerequisite: "+p)
		}
	}

	cp := skill
	cp.Prerequisites = append([]string(nil), skill.Prerequisites...)
	g.skills[skill.ID] = cp
	g.order = nil
	return nil
}

// NewFromSkills builds a graph from an unordered list of skills,
// allowing forward references within the list, then validates the
// whole graph for dangling prerequisites, duplicates, and cycles.
func NewFromSkills(skills []Skill) (*Graph, error) {
	g := New()
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		if seen[s.ID] {
			return nil, errs.Invalid(errs.KindInvalidGraph, s.ID, "duplicate skill id")
		}
		seen[s.ID] = true
		cp := s
		cp.Prerequisites = append([]string(nil), s.Prerequisites...)
		g.skills[s.ID] = cp
	}

	if valid, problems := g.Validate(); !valid {
		return nil, errs.New(errs.KindInvalidGraph, "invalid skill graph").
			WithDetails(map[string]any{"errors": problems})
	}

	return g, nil
}

// Validate reports whether the graph is a valid DAG with no dangling
// prerequisites, returning every offending skill id it finds.
func (g *Graph) Validate() (valid bool, problems []string) {
	var errors []string

	for id, skill := range g.skills {
		for _, p := range skill.Prerequisites {
			if _, ok := g.skills[p]; !ok {
				errors = append(errors, id+": dangling prerequisite "+p)
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.skills))

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		skill, ok := g.skills[id]
		if ok {
			prereqs := append([]string(nil), skill.Prerequisites...)
			sort.Strings(prereqs)
			for _, p := range prereqs {
				if _, exists := g.skills[p]; !exists {
					continue // already reported as dangling
				}
				switch color[p] {
				case white:
					if visit(p) {
						return true
					}
				case gray:
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	ids := g.sortedIDs()
	for _, id := range ids {
		if color[id] == white {
			if visit(id) {
				errors = append(errors, id+": participates in a cycle")
			}
		}
	}

	if len(errors) == 0 {
		return true, nil
	}
	sort.Strings(errors)
	return false, errors
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.skills))
	for id := range g.skills {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetTopologicalOrder returns a deterministic linearization of the DAG:
// skills with equal depth are ordered lexicographically by id.
func (g *Graph) GetTopologicalOrder() []string {
	if g.order != nil {
		return append([]string(nil), g.order...)
	}

	indegree := make(map[string]int, len(g.skills))
	dependents := make(map[string][]string, len(g.skills))
	for id, skill := range g.skills {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, p := range skill.Prerequisites {
			indegree[id]++
			dependents[p] = append(dependents[p], id)
		}
	}

	ready := make([]string, 0)
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.skills))
	for len(ready) > 0 {
		sort.Strings(ready)
		order = append(order, ready...)

		var nextLevel []string
		for _, id := range ready {
			for _, child := range dependents[id] {
				indegree[child]--
				if indegree[child] == 0 {
					nextLevel = append(nextLevel, child)
				}
			}
		}
		ready = nextLevel
	}

	g.order = order
	return append([]string(nil), order...)
}

// GetAllPrerequisites returns the full transitive prerequisite closure
// of skillID, in topological order.
func (g *Graph) GetAllPrerequisites(skillID string) ([]string, error) {
	if _, ok := g.skills[skillID]; !ok {
		return nil, errs.Invalid(errs.KindInvalidGraph, skillID, "unknown skill")
	}

	visited := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		s, ok := g.skills[id]
		if !ok {
			return
		}
		for _, p := range s.Prerequisites {
			if !visited[p] {
				visited[p] = true
				walk(p)
			}
		}
	}
	walk(skillID)

	order := g.GetTopologicalOrder()
	result := make([]string, 0, len(visited))
	for _, id := range order {
		if visited[id] {
			result = append(result, id)
		}
	}
	return result, nil
}

// GetDependents returns every skill (immediate or transitive) whose
// prerequisite chain includes skillID, in topological order.
func (g *Graph) GetDependents(skillID string) []string {
	reverse := make(map[string][]string, len(g.skills))
	for id, skill := range g.skills {
		for _, p := range skill.Prerequisites {
			reverse[p] = append(reverse[p], id)
		}
	}

	visited := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		for _, child := range reverse[id] {
			if !visited[child] {
				visited[child] = true
				walk(child)
			}
		}
	}
	walk(skillID)

	order := g.GetTopologicalOrder()
	result := make([]string, 0, len(visited))
	for _, id := range order {
		if visited[id] {
			result = append(result, id)
		}
	}
	return result
}

// IsPrerequisiteOf reports whether a is a (direct or transitive)
// prerequisite of b.
func (g *Graph) IsPrerequisiteOf(a, b string) (bool, error) {
	prereqs, err := g.GetAllPrerequisites(b)
	if err != nil {
		return false, err
	}
	for _, p := range prereqs {
		if p == a {
			return true, nil
		}
	}
	return false, nil
}

// Skill returns the skill with the given id, if present.
func (g *Graph) Skill(id string) (Skill, bool) {
	s, ok := g.skills[id]
	return s, ok
}

// Has reports whether a skill with the given id exists in the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.skills[id]
	return ok
}

// Size returns the number of skills in the graph.
func (g *Graph) Size() int {
	return len(g.skills)
}

// LeverageOf returns the number of transitive dependents of skillID —
// the "leverage" proxy for curricular impact used by the planner.
func (g *Graph) LeverageOf(skillID string) int {
	return len(g.GetDependents(skillID))
}
