package aggregates

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/ithailevi/expert/domain/config"
	"github.com/ithailevi/expert/domain/core/entities"
	"github.com/ithailevi/expert/domain/core/valueobjects"
	"github.com/ithailevi/expert/domain/events"
	pkgerrors "github.com/ithailevi/expert/pkg/errors"
	"github.com/ithailevi/expert/pkg/utils"
)

// Built-in relation ids
var (
	IsaID     = valueobjects.MustRelationID("isa")
	ExampleID = valueobjects.MustRelationID("example")
)

// Domain is the aggregate root for one semantic network. It owns every
// concept and relation, allocates ids, and applies facts.
//
// A Domain is not safe for concurrent use; callers sharing one across
// goroutines must serialize access (see services.KnowledgeService).
type Domain struct {
	id     valueobjects.DomainID
	config *config.DomainConfig
	logger *zap.Logger
	rng    *rand.Rand

	concepts      map[valueobjects.ConceptID]*entities.Concept
	conceptOrder  []*entities.Concept
	relations     map[valueobjects.RelationID]*entities.Relation
	relationOrder []*entities.Relation
	verbs         map[string]*entities.Relation

	nextConcept  int
	nextRelation int

	isa     *entities.Relation
	example *entities.Relation

	version int
	events  []events.DomainEvent
}

// Option configures a Domain
type Option func(*Domain)

// WithLogger sets the domain logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Domain) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithConfig sets the traversal bounds
func WithConfig(cfg *config.DomainConfig) Option {
	return func(d *Domain) {
		if cfg != nil {
			d.config = cfg
		}
	}
}

// WithRand sets the random source used by Concept.Any
func WithRand(rng *rand.Rand) Option {
	return func(d *Domain) {
		if rng != nil {
			d.rng = rng
		}
	}
}

// NewDomain creates an empty knowledge base holding only the built-in isa
// and example relations.
func NewDomain(opts ...Option) *Domain {
	d := &Domain{
		id:        valueobjects.NewDomainID(),
		config:    config.DefaultDomainConfig(),
		logger:    zap.NewNop(),
		concepts:  make(map[valueobjects.ConceptID]*entities.Concept),
		relations: make(map[valueobjects.RelationID]*entities.Relation),
		verbs:     make(map[string]*entities.Relation),
		version:   1,
		events:    []events.DomainEvent{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		seed := d.config.RandomSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		d.rng = rand.New(rand.NewSource(seed))
	}

	// Built-ins carry explicit ids, so user relations still number from 0
	d.isa, _ = d.CreateRelation(RelationDescriptor{ID: IsaID, Transitive: true})
	d.example, _ = d.CreateRelation(RelationDescriptor{ID: ExampleID, Transitive: true, InverseFor: d.isa})

	d.logger = d.logger.With(zap.String("domainID", d.id.String()))
	return d
}

// ID returns the domain's unique identifier
func (d *Domain) ID() valueobjects.DomainID {
	return d.id
}

// Version counts the mutations applied to the domain
func (d *Domain) Version() int {
	return d.version
}

// Config returns the bounds in effect
func (d *Domain) Config() *config.DomainConfig {
	return d.config
}

// Isa returns the built-in instance-to-class relation
func (d *Domain) Isa() *entities.Relation {
	return d.isa
}

// Example returns the built-in class-to-instance relation
func (d *Domain) Example() *entities.Relation {
	return d.example
}

// CreateConcept registers a new concept. A zero id assigns the next free
// sequential id. An explicit id that is already registered is rejected with
// a conflict error; use GetOrCreateConcept to reference a concept by id.
func (d *Domain) CreateConcept(id valueobjects.ConceptID) (*entities.Concept, error) {
	if id.IsZero() {
		id = d.allocateConceptID()
	} else if _, exists := d.concepts[id]; exists {
		return nil, pkgerrors.NewConflictError("concept already exists").
			WithDetail("conceptID", id.String())
	}

	concept := entities.NewConcept(id, d)
	d.concepts[id] = concept
	d.conceptOrder = append(d.conceptOrder, concept)
	d.version++
	d.addEvent(events.NewConceptCreated(d.id, id, d.version, time.Now()))

	d.logger.Debug("Concept created", zap.String("conceptID", id.String()))
	return concept, nil
}

// FetchConcept returns the concept registered under id
func (d *Domain) FetchConcept(id valueobjects.ConceptID) (*entities.Concept, bool) {
	concept, ok := d.concepts[id]
	return concept, ok
}

// GetOrCreateConcept returns the concept registered under id, creating it if
// needed. A zero id always creates a new sequentially numbered concept.
func (d *Domain) GetOrCreateConcept(id valueobjects.ConceptID) *entities.Concept {
	if concept, ok := d.concepts[id]; ok {
		return concept
	}
	// cannot conflict: id is either zero or unregistered
	concept, _ := d.CreateConcept(id)
	return concept
}

// Concept is GetOrCreateConcept keyed by a plain name. An empty name creates
// a new sequentially numbered concept.
func (d *Domain) Concept(name string) *entities.Concept {
	id, _ := valueobjects.NewConceptID(name)
	return d.GetOrCreateConcept(id)
}

// Concepts returns every concept in creation order
func (d *Domain) Concepts() []*entities.Concept {
	return append([]*entities.Concept(nil), d.conceptOrder...)
}

// RelationDescriptor describes a relation to create
type RelationDescriptor struct {
	// ID is optional; zero assigns the next sequential id
	ID         valueobjects.RelationID
	Transitive bool
	// InverseFor, when set, becomes the inverse of the new relation and
	// vice versa
	InverseFor *entities.Relation
}

// CreateRelation registers a new relation. Ids follow the same allocation and
// conflict rules as CreateConcept. When the id is a legal, unreserved Go
// identifier the relation is also registered as a verb for Concept.Do;
// other ids are simply not registered.
func (d *Domain) CreateRelation(desc RelationDescriptor) (*entities.Relation, error) {
	id := desc.ID
	if id.IsZero() {
		id = d.allocateRelationID()
	} else if _, exists := d.relations[id]; exists {
		return nil, pkgerrors.NewConflictError("relation already exists").
			WithDetail("relationID", id.String())
	}
	if desc.InverseFor != nil && d.relations[desc.InverseFor.ID()] != desc.InverseFor {
		return nil, pkgerrors.NewValidationError("inverse relation does not belong to this domain").
			WithDetail("relationID", desc.InverseFor.ID().String())
	}

	relation := entities.NewRelation(id, desc.Transitive)
	var inverseID *valueobjects.RelationID
	if desc.InverseFor != nil {
		relation.SetInverse(desc.InverseFor)
		rid := desc.InverseFor.ID()
		inverseID = &rid
	}

	d.relations[id] = relation
	d.relationOrder = append(d.relationOrder, relation)
	if utils.IsValidName(id.String(), entities.ReservedVerbs()) {
		d.verbs[id.String()] = relation
	}
	d.version++
	d.addEvent(events.NewRelationCreated(d.id, id, desc.Transitive, inverseID, d.version, time.Now()))

	d.logger.Debug("Relation created",
		zap.String("relationID", id.String()),
		zap.Bool("transitive", desc.Transitive),
	)
	return relation, nil
}

// FetchRelation returns the relation registered under id
func (d *Domain) FetchRelation(id valueobjects.RelationID) (*entities.Relation, bool) {
	relation, ok := d.relations[id]
	return relation, ok
}

// Relations returns every relation in creation order, built-ins first
func (d *Domain) Relations() []*entities.Relation {
	return append([]*entities.Relation(nil), d.relationOrder...)
}

// Verb returns the relation registered under a verb name
func (d *Domain) Verb(name string) (*entities.Relation, bool) {
	relation, ok := d.verbs[name]
	return relation, ok
}

// Pick returns a uniformly random index in [0, n)
func (d *Domain) Pick(n int) int {
	return d.rng.Intn(n)
}

// TraversalLimit returns the maximum traversal depth
func (d *Domain) TraversalLimit() int {
	return d.config.MaxTraversalDepth
}

// GetUncommittedEvents returns all uncommitted domain events
func (d *Domain) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(d.events))
	copy(out, d.events)
	return out
}

// MarkEventsAsCommitted clears all uncommitted events
func (d *Domain) MarkEventsAsCommitted() {
	d.events = []events.DomainEvent{}
}

// Private helper methods

func (d *Domain) addEvent(event events.DomainEvent) {
	d.events = append(d.events, event)
}

// allocateConceptID returns the next counter value not already taken by an
// explicitly named concept.
func (d *Domain) allocateConceptID() valueobjects.ConceptID {
	for {
		id := valueobjects.SequentialConceptID(d.nextConcept)
		d.nextConcept++
		if _, taken := d.concepts[id]; !taken {
			return id
		}
	}
}

func (d *Domain) allocateRelationID() valueobjects.RelationID {
	for {
		id := valueobjects.SequentialRelationID(d.nextRelation)
		d.nextRelation++
		if _, taken := d.relations[id]; !taken {
			return id
		}
	}
}
