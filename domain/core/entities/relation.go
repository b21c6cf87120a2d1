package entities

import (
	"github.com/ithailevi/expert/domain/core/valueobjects"
	pkgerrors "github.com/ithailevi/expert/pkg/errors"
)

// Relation is an edge type of the semantic network. A relation may be
// transitive, may have an inverse relation, and may imply a more abstract
// relation that is established alongside it.
type Relation struct {
	id         valueobjects.RelationID
	transitive bool
	inverse    *Relation
	implied    *Relation
}

// NewRelation creates a relation with no inverse and no implication
func NewRelation(id valueobjects.RelationID, transitive bool) *Relation {
	return &Relation{
		id:         id,
		transitive: transitive,
	}
}

// ID returns the relation's identifier
func (r *Relation) ID() valueobjects.RelationID {
	return r.id
}

// IsTransitive reports whether links of this relation are followed through
func (r *Relation) IsTransitive() bool {
	return r.transitive
}

// Inverse returns the inverse relation or nil
func (r *Relation) Inverse() *Relation {
	return r.inverse
}

// Implied returns the relation this one implies or nil
func (r *Relation) Implied() *Relation {
	return r.implied
}

// SetInverse makes r and other inverses of each other. Any previous partner
// of either side is released so the pairing stays symmetric.
func (r *Relation) SetInverse(other *Relation) {
	if r.inverse != nil && r.inverse != other {
		r.inverse.inverse = nil
	}
	if other == nil {
		r.inverse = nil
		return
	}
	if other.inverse != nil && other.inverse != r {
		other.inverse.inverse = nil
	}
	r.inverse = other
	other.inverse = r
}

// Implies declares that establishing r also establishes abstract on the same
// pair. It returns r so declarations can be chained.
func (r *Relation) Implies(abstract *Relation) *Relation {
	r.implied = abstract
	return r
}

// ImplicationChain returns r followed by every relation it implies, in
// cascade order. A chain that revisits a relation is reported as a cycle and
// a chain longer than limit as exceeded.
func (r *Relation) ImplicationChain(limit int) ([]*Relation, error) {
	seen := make(map[*Relation]bool)
	var chain []*Relation
	for cur := r; cur != nil; cur = cur.implied {
		if seen[cur] {
			path := make([]string, 0, len(chain)+1)
			for _, rel := range chain {
				path = append(path, rel.id.String())
			}
			path = append(path, cur.id.String())
			return nil, pkgerrors.NewCycleError("implication chain", path)
		}
		if len(chain) >= limit {
			return nil, pkgerrors.NewLimitExceededError("implication chain", limit)
		}
		seen[cur] = true
		chain = append(chain, cur)
	}
	return chain, nil
}

// Query returns the concepts this relation links to from every one of the
// given sources, inheritance and transitivity included. The result holds
// each concept once, in the order it is reached from the first source.
func (r *Relation) Query(sources ...*Concept) ([]*Concept, error) {
	if len(sources) == 0 {
		return []*Concept{}, nil
	}
	for _, source := range sources {
		if source == nil {
			return nil, pkgerrors.NewValidationError("source concept is required")
		}
	}

	first, err := sources[0].AllLinksOf(r)
	if err != nil {
		return nil, err
	}

	rest := make([]map[*Concept]bool, 0, len(sources)-1)
	for _, source := range sources[1:] {
		links, err := source.AllLinksOf(r)
		if err != nil {
			return nil, err
		}
		rest = append(rest, conceptSet(links))
	}

	result := []*Concept{}
	emitted := make(map[*Concept]bool, len(first))
	for _, candidate := range first {
		if emitted[candidate] || !inAll(candidate, rest) {
			continue
		}
		emitted[candidate] = true
		result = append(result, candidate)
	}
	return result, nil
}

// Holds reports whether target is linked by this relation from every source
func (r *Relation) Holds(target *Concept, sources ...*Concept) (bool, error) {
	if target == nil {
		return false, pkgerrors.NewValidationError("target concept is required")
	}
	members, err := r.Query(sources...)
	if err != nil {
		return false, err
	}
	for _, member := range members {
		if member == target {
			return true, nil
		}
	}
	return false, nil
}

func conceptSet(concepts []*Concept) map[*Concept]bool {
	set := make(map[*Concept]bool, len(concepts))
	for _, c := range concepts {
		set[c] = true
	}
	return set
}

func inAll(c *Concept, sets []map[*Concept]bool) bool {
	for _, set := range sets {
		if !set[c] {
			return false
		}
	}
	return true
}
