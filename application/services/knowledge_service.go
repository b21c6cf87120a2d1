package services

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ithailevi/expert/domain/core/aggregates"
	"github.com/ithailevi/expert/domain/core/entities"
	"github.com/ithailevi/expert/domain/core/valueobjects"
	"github.com/ithailevi/expert/domain/events"
	pkgerrors "github.com/ithailevi/expert/pkg/errors"
	"github.com/ithailevi/expert/pkg/observability"
	"github.com/ithailevi/expert/pkg/utils"
)

// DefineRelationCommand creates a relation. An empty ID asks the domain for
// the next sequential id.
type DefineRelationCommand struct {
	ID         string `json:"id" validate:"omitempty,max=256"`
	Transitive bool   `json:"transitive"`
	InverseFor string `json:"inverseFor,omitempty" validate:"omitempty,max=256"`
	Implies    string `json:"implies,omitempty" validate:"omitempty,max=256"`
}

// AssertFactCommand establishes "subject relation object". Missing
// concepts are created; the relation must exist.
type AssertFactCommand struct {
	Subject  string `json:"subject" validate:"required,max=256"`
	Relation string `json:"relation" validate:"required,max=256"`
	Object   string `json:"object" validate:"required,max=256"`
}

// AskQuery asks which concepts every source reaches through Relation, or,
// when Target is set, whether every source reaches Target.
type AskQuery struct {
	Relation string   `json:"relation" validate:"required"`
	Sources  []string `json:"sources" validate:"min=1,dive,required"`
	Target   string   `json:"target,omitempty"`
}

// AskResult answers an AskQuery. Holds is set only for targeted queries.
type AskResult struct {
	Relation string   `json:"relation"`
	Sources  []string `json:"sources"`
	Target   string   `json:"target,omitempty"`
	Holds    *bool    `json:"holds,omitempty"`
	Concepts []string `json:"concepts,omitempty"`
}

// RelationView describes a relation
type RelationView struct {
	ID         string `json:"id"`
	Transitive bool   `json:"transitive"`
	InverseFor string `json:"inverseFor,omitempty"`
	Implies    string `json:"implies,omitempty"`
}

// ConceptView lists a concept's direct links by relation
type ConceptView struct {
	ID    string              `json:"id"`
	Links map[string][]string `json:"links"`
}

// FactResult reports what an assertion established, implied facts included
type FactResult struct {
	Subject   string   `json:"subject"`
	Object    string   `json:"object"`
	Relations []string `json:"relations"`
}

// KnowledgeService serves one Domain to concurrent callers. Reads share the
// lock; writes, reloads and Any (which draws from the domain's random
// source) take it exclusively.
type KnowledgeService struct {
	mu      sync.RWMutex
	domain  *aggregates.Domain
	logger  *zap.Logger
	metrics *observability.Collector
	tracer  trace.Tracer
}

// NewKnowledgeService creates a service around d
func NewKnowledgeService(
	d *aggregates.Domain,
	logger *zap.Logger,
	metrics *observability.Collector,
	tracer trace.Tracer,
) *KnowledgeService {
	s := &KnowledgeService{
		domain:  d,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
	s.publishEvents()
	return s
}

// DefineRelation creates a relation and wires its inverse and implication
func (s *KnowledgeService) DefineRelation(ctx context.Context, cmd DefineRelationCommand) (view *RelationView, err error) {
	_, span := observability.StartSpan(ctx, s.tracer, "KnowledgeService.DefineRelation",
		attribute.String("relation.id", cmd.ID),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	desc := aggregates.RelationDescriptor{Transitive: cmd.Transitive}
	if cmd.ID != "" {
		desc.ID = valueobjects.MustRelationID(cmd.ID)
	}
	if cmd.InverseFor != "" {
		inverse, err := s.relation(cmd.InverseFor)
		if err != nil {
			return nil, err
		}
		desc.InverseFor = inverse
	}
	var implied *entities.Relation
	if cmd.Implies != "" {
		if implied, err = s.relation(cmd.Implies); err != nil {
			return nil, err
		}
	}

	r, err := s.domain.CreateRelation(desc)
	if err != nil {
		return nil, err
	}
	if implied != nil {
		r.Implies(implied)
	}
	s.publishEvents()

	s.logger.Info("Relation defined",
		zap.String("relationID", r.ID().String()),
		zap.Bool("transitive", r.IsTransitive()),
	)
	return relationView(r), nil
}

// Assert establishes a fact
func (s *KnowledgeService) Assert(ctx context.Context, cmd AssertFactCommand) (result *FactResult, err error) {
	_, span := observability.StartSpan(ctx, s.tracer, "KnowledgeService.Assert",
		attribute.String("fact.subject", cmd.Subject),
		attribute.String("fact.relation", cmd.Relation),
		attribute.String("fact.object", cmd.Object),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	relation, err := s.relation(cmd.Relation)
	if err != nil {
		return nil, err
	}
	chain, err := relation.ImplicationChain(s.domain.Config().MaxImplicationDepth)
	if err != nil {
		return nil, err
	}

	subject := s.domain.Concept(cmd.Subject)
	object := s.domain.Concept(cmd.Object)
	if err := s.domain.Establish(subject, relation, object); err != nil {
		return nil, err
	}
	s.publishEvents()

	result = &FactResult{Subject: subject.ID().String(), Object: object.ID().String()}
	for _, r := range chain {
		result.Relations = append(result.Relations, r.ID().String())
	}
	return result, nil
}

// Ask answers a relation query. Unknown concepts are reported, never created.
func (s *KnowledgeService) Ask(ctx context.Context, q AskQuery) (result *AskResult, err error) {
	_, span := observability.StartSpan(ctx, s.tracer, "KnowledgeService.Ask",
		attribute.String("relation.id", q.Relation),
		attribute.StringSlice("sources", q.Sources),
		attribute.String("target", q.Target),
	)
	defer func() {
		s.observeQuery("ask", result != nil && (len(result.Concepts) > 0 || (result.Holds != nil && *result.Holds)), err)
		observability.EndSpan(span, err)
	}()

	if err := utils.ValidateStruct(q); err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	relation, err := s.relation(q.Relation)
	if err != nil {
		return nil, err
	}
	sources := make([]*entities.Concept, 0, len(q.Sources))
	for _, id := range q.Sources {
		c, err := s.concept(id)
		if err != nil {
			return nil, err
		}
		sources = append(sources, c)
	}

	result = &AskResult{Relation: q.Relation, Sources: q.Sources, Target: q.Target}
	if q.Target != "" {
		target, err := s.concept(q.Target)
		if err != nil {
			return nil, err
		}
		holds, err := relation.Holds(target, sources...)
		if err != nil {
			return nil, err
		}
		result.Holds = &holds
		return result, nil
	}

	found, err := relation.Query(sources...)
	if err != nil {
		return nil, err
	}
	result.Concepts = conceptIDs(found)
	return result, nil
}

// Any picks one concept linked to conceptID through relationID, inherited
// links included. ok is false when there is none.
func (s *KnowledgeService) Any(ctx context.Context, conceptID, relationID string) (picked string, ok bool, err error) {
	_, span := observability.StartSpan(ctx, s.tracer, "KnowledgeService.Any",
		attribute.String("concept.id", conceptID),
		attribute.String("relation.id", relationID),
	)
	defer func() {
		s.observeQuery("any", ok, err)
		observability.EndSpan(span, err)
	}()

	if conceptID == "" || relationID == "" {
		return "", false, pkgerrors.NewValidationError("concept and relation are required")
	}

	// Any advances the domain's random source
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.concept(conceptID)
	if err != nil {
		return "", false, err
	}
	found, ok, err := c.Any(valueobjects.MustRelationID(relationID))
	if err != nil || !ok {
		return "", false, err
	}
	return found.ID().String(), true, nil
}

// Describe returns a concept's direct links
func (s *KnowledgeService) Describe(ctx context.Context, conceptID string) (view *ConceptView, err error) {
	_, span := observability.StartSpan(ctx, s.tracer, "KnowledgeService.Describe",
		attribute.String("concept.id", conceptID),
	)
	defer func() { observability.EndSpan(span, err) }()

	if conceptID == "" {
		return nil, pkgerrors.NewValidationError("concept is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.concept(conceptID)
	if err != nil {
		return nil, err
	}
	view = &ConceptView{ID: c.ID().String(), Links: make(map[string][]string)}
	for _, rid := range c.LinkedRelations() {
		r, _ := s.domain.FetchRelation(rid)
		view.Links[rid.String()] = conceptIDs(c.DirectLinks(r))
	}
	return view, nil
}

// Relations lists every relation in creation order
func (s *KnowledgeService) Relations(ctx context.Context) []RelationView {
	_, span := observability.StartSpan(ctx, s.tracer, "KnowledgeService.Relations")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	relations := s.domain.Relations()
	out := make([]RelationView, 0, len(relations))
	for _, r := range relations {
		out = append(out, *relationView(r))
	}
	return out
}

// Snapshot serializes the current domain
func (s *KnowledgeService) Snapshot(ctx context.Context) *aggregates.Snapshot {
	_, span := observability.StartSpan(ctx, s.tracer, "KnowledgeService.Snapshot")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.domain.Serialize()
}

// Replace swaps in a new domain, typically after the knowledge base file
// changed. Callers in flight finish against the old one.
func (s *KnowledgeService) Replace(d *aggregates.Domain) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.domain.ID()
	s.domain = d
	s.publishEvents()
	s.metrics.ObserveReload(nil)

	s.logger.Info("Knowledge base replaced",
		zap.String("previousDomainID", previous.String()),
		zap.String("domainID", d.ID().String()),
		zap.Int("concepts", len(d.Concepts())),
	)
}

// DomainID identifies the domain currently served
func (s *KnowledgeService) DomainID() valueobjects.DomainID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.domain.ID()
}

// publishEvents drains the domain's uncommitted events into metrics and the
// debug log. Callers hold the write lock.
func (s *KnowledgeService) publishEvents() {
	for _, event := range s.domain.GetUncommittedEvents() {
		switch e := event.(type) {
		case events.ConceptCreated:
			s.metrics.ConceptsCreated.Inc()
		case events.RelationCreated:
			s.metrics.RelationsCreated.Inc()
		case events.FactEstablished:
			s.metrics.ObserveFact(e.Implied)
		}
		s.logger.Debug("Domain event",
			zap.String("type", event.GetEventType()),
			zap.Int("version", event.GetVersion()),
		)
	}
	s.domain.MarkEventsAsCommitted()
}

func (s *KnowledgeService) observeQuery(operation string, hit bool, err error) {
	outcome := observability.OutcomeMiss
	switch {
	case err != nil:
		outcome = observability.OutcomeError
	case hit:
		outcome = observability.OutcomeHit
	}
	s.metrics.ObserveQuery(operation, outcome)
}

func (s *KnowledgeService) relation(id string) (*entities.Relation, error) {
	r, ok := s.domain.FetchRelation(valueobjects.MustRelationID(id))
	if !ok {
		return nil, pkgerrors.NewNotFoundError("relation " + id)
	}
	return r, nil
}

func (s *KnowledgeService) concept(id string) (*entities.Concept, error) {
	c, ok := s.domain.FetchConcept(valueobjects.MustConceptID(id))
	if !ok {
		return nil, pkgerrors.NewNotFoundError("concept " + id)
	}
	return c, nil
}

func relationView(r *entities.Relation) *RelationView {
	view := &RelationView{ID: r.ID().String(), Transitive: r.IsTransitive()}
	if inverse := r.Inverse(); inverse != nil {
		view.InverseFor = inverse.ID().String()
	}
	if implied := r.Implied(); implied != nil {
		view.Implies = implied.ID().String()
	}
	return view
}

func conceptIDs(concepts []*entities.Concept) []string {
	out := make([]string, 0, len(concepts))
	for _, c := range concepts {
		out = append(out, c.ID().String())
	}
	return out
}
