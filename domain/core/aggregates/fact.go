package aggregates

import (
	"time"

	"go.uber.org/zap"

	"github.com/ithailevi/expert/domain/core/entities"
	"github.com/ithailevi/expert/domain/events"
	pkgerrors "github.com/ithailevi/expert/pkg/errors"
)

// Establish applies a fact: subject is linked to object by relation, object
// is linked back to subject by the relation's inverse, and the same happens
// for every relation the relation implies, down the implication chain.
//
// The chain is checked before anything is linked, so a cyclic or overlong
// chain leaves the domain untouched.
func (d *Domain) Establish(subject *entities.Concept, relation *entities.Relation, object *entities.Concept) error {
	if subject == nil || relation == nil || object == nil {
		return pkgerrors.NewValidationError("subject, relation and object are required")
	}
	if !d.owns(subject) || !d.owns(object) {
		return pkgerrors.NewValidationError("concept does not belong to this domain")
	}
	if d.relations[relation.ID()] != relation {
		return pkgerrors.NewValidationError("relation does not belong to this domain").
			WithDetail("relationID", relation.ID().String())
	}

	chain, err := relation.ImplicationChain(d.config.MaxImplicationDepth)
	if err != nil {
		d.logger.Warn("Rejected fact",
			zap.String("subject", subject.ID().String()),
			zap.String("relation", relation.ID().String()),
			zap.String("object", object.ID().String()),
			zap.Error(err),
		)
		return err
	}

	now := time.Now()
	for i, r := range chain {
		subject.Link(r, object)
		if inverse := r.Inverse(); inverse != nil {
			object.Link(inverse, subject)
		}
		d.version++
		d.addEvent(events.NewFactEstablished(d.id, subject.ID(), r.ID(), object.ID(), i > 0, d.version, now))
	}
	return nil
}

func (d *Domain) owns(c *entities.Concept) bool {
	return d.concepts[c.ID()] == c
}
