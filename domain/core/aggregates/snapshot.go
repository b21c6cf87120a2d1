package aggregates

import (
	"sort"
	"strconv"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/ithailevi/expert/domain/core/entities"
	"github.com/ithailevi/expert/domain/core/valueobjects"
	pkgerrors "github.com/ithailevi/expert/pkg/errors"
)

// Snapshot is a plain-data export of a whole domain
type Snapshot struct {
	Relations map[valueobjects.RelationID]RelationRecord `json:"relations" yaml:"relations"`
	Concepts  map[valueobjects.ConceptID]ConceptRecord   `json:"concepts" yaml:"concepts"`
}

// RelationRecord describes one relation in a snapshot
type RelationRecord struct {
	IsTransitive bool                     `json:"isTransitive" yaml:"isTransitive"`
	InverseFor   *valueobjects.RelationID `json:"inverseFor,omitempty" yaml:"inverseFor,omitempty"`
	Implies      *valueobjects.RelationID `json:"implies,omitempty" yaml:"implies,omitempty"`
}

// ConceptRecord holds the links of one concept, keyed by relation
type ConceptRecord struct {
	Relations map[valueobjects.RelationID][]valueobjects.ConceptID `json:"relations" yaml:"relations"`
}

// Serialize exports every relation and concept. Concepts are visited in
// creation order and their links in first-linked relation order. A link
// A→B under R is left out when R has an inverse R' and B, visited earlier,
// already records A under R'; restoring the fact from either side re-creates
// both links.
func (d *Domain) Serialize() *Snapshot {
	out := &Snapshot{
		Relations: make(map[valueobjects.RelationID]RelationRecord, len(d.relationOrder)),
		Concepts:  make(map[valueobjects.ConceptID]ConceptRecord, len(d.conceptOrder)),
	}

	for _, r := range d.relationOrder {
		record := RelationRecord{IsTransitive: r.IsTransitive()}
		if inverse := r.Inverse(); inverse != nil {
			id := inverse.ID()
			record.InverseFor = &id
		}
		if implied := r.Implied(); implied != nil {
			id := implied.ID()
			record.Implies = &id
		}
		out.Relations[r.ID()] = record
	}

	for _, c := range d.conceptOrder {
		record := ConceptRecord{Relations: make(map[valueobjects.RelationID][]valueobjects.ConceptID)}
		for _, rid := range c.LinkedRelations() {
			r := d.relations[rid]
			for _, target := range c.DirectLinks(r) {
				if recordedFromOtherSide(out, r, c, target) {
					continue
				}
				record.Relations[rid] = append(record.Relations[rid], target.ID())
			}
		}
		out.Concepts[c.ID()] = record
	}

	return out
}

func recordedFromOtherSide(out *Snapshot, r *entities.Relation, source, target *entities.Concept) bool {
	inverse := r.Inverse()
	if inverse == nil {
		return false
	}
	emitted, ok := out.Concepts[target.ID()]
	if !ok {
		return false
	}
	for _, id := range emitted.Relations[inverse.ID()] {
		if id.Equals(source.ID()) {
			return true
		}
	}
	return false
}

// FromSnapshot rebuilds a domain from a snapshot. Links are restored as
// stored, without running implications. Every restored link under a relation
// with an inverse also gets its inverse link back, since Serialize may have
// left it out. All reference errors are reported together.
func FromSnapshot(snapshot *Snapshot, opts ...Option) (*Domain, error) {
	if snapshot == nil {
		return nil, pkgerrors.NewValidationError("snapshot is required")
	}
	d := NewDomain(opts...)

	relationIDs := sortedKeys(snapshot.Relations)

	var errs error
	for _, id := range relationIDs {
		record := snapshot.Relations[id]
		if existing, builtin := d.FetchRelation(id); builtin {
			if existing.IsTransitive() != record.IsTransitive {
				errs = multierr.Append(errs, pkgerrors.NewValidationError("built-in relation "+id.String()+" cannot change transitivity"))
			}
			continue
		}
		if _, err := d.CreateRelation(RelationDescriptor{ID: id, Transitive: record.IsTransitive}); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	for _, id := range relationIDs {
		record := snapshot.Relations[id]
		relation, ok := d.FetchRelation(id)
		if !ok {
			continue
		}
		if record.InverseFor != nil {
			inverse, ok := d.FetchRelation(*record.InverseFor)
			if !ok {
				errs = multierr.Append(errs, pkgerrors.NewNotFoundError("inverse relation "+record.InverseFor.String()))
			} else if relation.Inverse() != inverse {
				relation.SetInverse(inverse)
			}
		}
		if record.Implies != nil {
			implied, ok := d.FetchRelation(*record.Implies)
			if !ok {
				errs = multierr.Append(errs, pkgerrors.NewNotFoundError("implied relation "+record.Implies.String()))
			} else {
				relation.Implies(implied)
			}
		}
	}

	conceptIDs := sortedKeys(snapshot.Concepts)
	for _, id := range conceptIDs {
		d.GetOrCreateConcept(id)
	}

	for _, id := range conceptIDs {
		subject, _ := d.FetchConcept(id)
		links := snapshot.Concepts[id].Relations

		for _, rid := range sortedKeys(links) {
			relation, ok := d.FetchRelation(rid)
			if !ok {
				errs = multierr.Append(errs, pkgerrors.NewNotFoundError("relation "+rid.String()).
					WithDetail("conceptID", id.String()))
				continue
			}
			for _, targetID := range links[rid] {
				target, ok := d.FetchConcept(targetID)
				if !ok {
					errs = multierr.Append(errs, pkgerrors.NewNotFoundError("concept "+targetID.String()).
						WithDetail("linkedFrom", id.String()))
					continue
				}
				subject.Link(relation, target)
				if inverse := relation.Inverse(); inverse != nil {
					target.Link(inverse, subject)
				}
			}
		}
	}

	if errs != nil {
		return nil, errs
	}
	return d, nil
}

// MarshalYAML writes relations, concepts and per-concept links in sorted id
// order so the same domain always encodes to the same document.
func (s Snapshot) MarshalYAML() (interface{}, error) {
	relations := yamlMapping()
	for _, id := range sortedKeys(s.Relations) {
		record := &yaml.Node{}
		if err := record.Encode(s.Relations[id]); err != nil {
			return nil, err
		}
		relations.Content = append(relations.Content, yamlString(id.String()), record)
	}

	concepts := yamlMapping()
	for _, id := range sortedKeys(s.Concepts) {
		links := s.Concepts[id].Relations
		record := yamlMapping()
		for _, rid := range sortedKeys(links) {
			targets := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for _, target := range links[rid] {
				targets.Content = append(targets.Content, yamlString(target.String()))
			}
			record.Content = append(record.Content, yamlString(rid.String()), targets)
		}
		concept := yamlMapping()
		concept.Content = append(concept.Content, yamlString("relations"), record)
		concepts.Content = append(concepts.Content, yamlString(id.String()), concept)
	}

	root := yamlMapping()
	root.Content = append(root.Content,
		yamlString("relations"), relations,
		yamlString("concepts"), concepts,
	)
	return root, nil
}

func yamlMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func yamlString(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

type snapshotID interface {
	comparable
	String() string
}

func sortedKeys[K snapshotID, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortIDs(keys, func(k K) string { return k.String() })
	return keys
}

// sortIDs orders sequential (numeric) ids numerically ahead of named ids,
// which sort lexically.
func sortIDs[T any](ids []T, str func(T) string) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := str(ids[i]), str(ids[j])
		na, errA := strconv.Atoi(a)
		nb, errB := strconv.Atoi(b)
		switch {
		case errA == nil && errB == nil:
			return na < nb
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return a < b
		}
	})
}
