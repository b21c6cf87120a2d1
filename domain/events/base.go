package events

import (
	"time"

	"github.com/ithailevi/expert/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Event type names
const (
	TypeConceptCreated  = "concept.created"
	TypeRelationCreated = "relation.created"
	TypeFactEstablished = "fact.established"
)

// ConceptCreated is raised when a concept is registered in a domain
type ConceptCreated struct {
	BaseEvent
	ConceptID valueobjects.ConceptID `json:"concept_id"`
}

// NewConceptCreated creates a ConceptCreated event
func NewConceptCreated(domainID valueobjects.DomainID, conceptID valueobjects.ConceptID, version int, timestamp time.Time) ConceptCreated {
	return ConceptCreated{
		BaseEvent: BaseEvent{
			AggregateID: domainID.String(),
			EventType:   TypeConceptCreated,
			Timestamp:   timestamp,
			Version:     version,
		},
		ConceptID: conceptID,
	}
}

// RelationCreated is raised when a relation is registered in a domain
type RelationCreated struct {
	BaseEvent
	RelationID valueobjects.RelationID  `json:"relation_id"`
	Transitive bool                     `json:"transitive"`
	InverseFor *valueobjects.RelationID `json:"inverse_for,omitempty"`
}

// NewRelationCreated creates a RelationCreated event
func NewRelationCreated(
	domainID valueobjects.DomainID,
	relationID valueobjects.RelationID,
	transitive bool,
	inverseFor *valueobjects.RelationID,
	version int,
	timestamp time.Time,
) RelationCreated {
	return RelationCreated{
		BaseEvent: BaseEvent{
			AggregateID: domainID.String(),
			EventType:   TypeRelationCreated,
			Timestamp:   timestamp,
			Version:     version,
		},
		RelationID: relationID,
		Transitive: transitive,
		InverseFor: inverseFor,
	}
}

// FactEstablished is raised for every subject/relation/object link a fact
// applies. Implied is set for links added by an implication cascade.
type FactEstablished struct {
	BaseEvent
	SubjectID  valueobjects.ConceptID  `json:"subject_id"`
	RelationID valueobjects.RelationID `json:"relation_id"`
	ObjectID   valueobjects.ConceptID  `json:"object_id"`
	Implied    bool                    `json:"implied"`
}

// NewFactEstablished creates a FactEstablished event
func NewFactEstablished(
	domainID valueobjects.DomainID,
	subject valueobjects.ConceptID,
	relation valueobjects.RelationID,
	object valueobjects.ConceptID,
	implied bool,
	version int,
	timestamp time.Time,
) FactEstablished {
	return FactEstablished{
		BaseEvent: BaseEvent{
			AggregateID: domainID.String(),
			EventType:   TypeFactEstablished,
			Timestamp:   timestamp,
			Version:     version,
		},
		SubjectID:  subject,
		RelationID: relation,
		ObjectID:   object,
		Implied:    implied,
	}
}
