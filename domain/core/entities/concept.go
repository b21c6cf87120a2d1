package entities

import (
	"github.com/ithailevi/expert/domain/core/valueobjects"
	pkgerrors "github.com/ithailevi/expert/pkg/errors"
)

// Registry is the view a concept has of the domain that owns it
type Registry interface {
	FetchRelation(id valueobjects.RelationID) (*Relation, bool)
	Verb(name string) (*Relation, bool)
	Isa() *Relation
	Example() *Relation
	Establish(subject *Concept, relation *Relation, object *Concept) error
	// Pick returns a uniformly random index in [0, n)
	Pick(n int) int
	TraversalLimit() int
}

// Concept is a vertex of the semantic network. It owns its outgoing link
// table; the concepts it links to are owned by the domain registry.
type Concept struct {
	id    valueobjects.ConceptID
	links map[valueobjects.RelationID][]*Concept
	order []valueobjects.RelationID
	owner Registry
}

// NewConcept creates an unlinked concept owned by registry
func NewConcept(id valueobjects.ConceptID, owner Registry) *Concept {
	return &Concept{
		id:    id,
		links: make(map[valueobjects.RelationID][]*Concept),
		owner: owner,
	}
}

// ID returns the concept's identifier
func (c *Concept) ID() valueobjects.ConceptID {
	return c.id
}

// String returns the concept id
func (c *Concept) String() string {
	return c.id.String()
}

// Link appends target to the link list for relation. It reports false when
// target was already linked.
func (c *Concept) Link(relation *Relation, target *Concept) bool {
	rid := relation.ID()
	existing, ok := c.links[rid]
	if !ok {
		c.order = append(c.order, rid)
	}
	for _, linked := range existing {
		if linked == target {
			return false
		}
	}
	c.links[rid] = append(existing, target)
	return true
}

// DirectLinks returns a copy of the stored link list for relation
func (c *Concept) DirectLinks(relation *Relation) []*Concept {
	return append([]*Concept(nil), c.links[relation.ID()]...)
}

// LinkedRelations returns the ids of relations this concept has links for,
// in the order each was first linked.
func (c *Concept) LinkedRelations() []valueobjects.RelationID {
	return append([]valueobjects.RelationID(nil), c.order...)
}

// Fact establishes relation from c to target with all of its side effects.
// It returns c so facts about one subject can be chained.
func (c *Concept) Fact(relation *Relation, target *Concept) (*Concept, error) {
	if err := c.owner.Establish(c, relation, target); err != nil {
		return c, err
	}
	return c, nil
}

// Do establishes the relation registered under verb from c to target
func (c *Concept) Do(verb string, target *Concept) (*Concept, error) {
	relation, ok := c.owner.Verb(verb)
	if !ok {
		return c, pkgerrors.NewNotFoundError("verb " + verb)
	}
	return c.Fact(relation, target)
}

// Any returns one concept chosen uniformly at random from AllLinksOf the
// relation. The boolean is false when there is nothing to choose from.
func (c *Concept) Any(relationID valueobjects.RelationID) (*Concept, bool, error) {
	relation, ok := c.owner.FetchRelation(relationID)
	if !ok {
		return nil, false, pkgerrors.NewNotFoundError("relation " + relationID.String())
	}

	links, err := c.AllLinksOf(relation)
	if err != nil {
		return nil, false, err
	}
	if len(links) == 0 {
		return nil, false, nil
	}
	return links[c.owner.Pick(len(links))], true, nil
}

// reservedVerbs are names that would shadow Concept's own methods
var reservedVerbs = map[string]bool{
	"ID":               true,
	"String":           true,
	"Link":             true,
	"DirectLinks":      true,
	"LinkedRelations":  true,
	"Fact":             true,
	"Do":               true,
	"Any":              true,
	"ImmediateLinksOf": true,
	"AllLinksOf":       true,
}

// ReservedVerbs returns the names that can never be registered as verbs
// besides Go keywords.
func ReservedVerbs() map[string]bool {
	reserved := make(map[string]bool, len(reservedVerbs))
	for name := range reservedVerbs {
		reserved[name] = true
	}
	return reserved
}
