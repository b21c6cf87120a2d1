package entities

import (
	pkgerrors "github.com/ithailevi/expert/pkg/errors"
)

// walk guards one recursive traversal. path holds the concepts currently
// being expanded; meeting one of them again means the edges form a cycle.
type walk struct {
	kind  string
	limit int
	path  []*Concept
	on    map[*Concept]bool
}

func newWalk(kind string, limit int) *walk {
	return &walk{
		kind:  kind,
		limit: limit,
		on:    make(map[*Concept]bool),
	}
}

func (w *walk) enter(c *Concept) error {
	if w.on[c] {
		ids := make([]string, 0, len(w.path)+1)
		for _, p := range w.path {
			ids = append(ids, p.id.String())
		}
		ids = append(ids, c.id.String())
		return pkgerrors.NewCycleError(w.kind, ids)
	}
	if len(w.path) >= w.limit {
		return pkgerrors.NewLimitExceededError(w.kind+" traversal depth", w.limit)
	}
	w.on[c] = true
	w.path = append(w.path, c)
	return nil
}

func (w *walk) leave(c *Concept) {
	delete(w.on, c)
	w.path = w.path[:len(w.path)-1]
}

// ImmediateLinksOf returns the concepts c links to by relation. For a
// transitive relation the list is followed by, for each of those concepts in
// turn, their own ImmediateLinksOf the relation. Concepts reachable along
// more than one path appear more than once.
func (c *Concept) ImmediateLinksOf(relation *Relation) ([]*Concept, error) {
	if relation == nil {
		return nil, pkgerrors.NewValidationError("relation is required")
	}
	return c.immediateLinks(relation, newWalk("relation "+relation.ID().String(), c.owner.TraversalLimit()))
}

func (c *Concept) immediateLinks(relation *Relation, w *walk) ([]*Concept, error) {
	direct := c.links[relation.ID()]
	result := append([]*Concept(nil), direct...)
	if !relation.IsTransitive() || len(direct) == 0 {
		return result, nil
	}

	if err := w.enter(c); err != nil {
		return nil, err
	}
	defer w.leave(c)

	for _, next := range direct {
		more, err := next.immediateLinks(relation, w)
		if err != nil {
			return nil, err
		}
		result = append(result, more...)
	}
	return result, nil
}

// AllLinksOf returns ImmediateLinksOf the relation followed by everything c
// inherits through isa: each direct isa parent contributes its own
// AllLinksOf the relation. The example relation is never inherited, since a
// class does not share the instances of its ancestors.
func (c *Concept) AllLinksOf(relation *Relation) ([]*Concept, error) {
	if relation == nil {
		return nil, pkgerrors.NewValidationError("relation is required")
	}
	return c.allLinks(relation, newWalk("relation isa", c.owner.TraversalLimit()))
}

func (c *Concept) allLinks(relation *Relation, inheritance *walk) ([]*Concept, error) {
	result, err := c.ImmediateLinksOf(relation)
	if err != nil {
		return nil, err
	}

	parents := c.links[c.owner.Isa().ID()]
	if len(parents) == 0 || relation == c.owner.Example() {
		return result, nil
	}

	if err := inheritance.enter(c); err != nil {
		return nil, err
	}
	defer inheritance.leave(c)

	for _, parent := range parents {
		inherited, err := parent.allLinks(relation, inheritance)
		if err != nil {
			return nil, err
		}
		result = append(result, inherited...)
	}
	return result, nil
}
