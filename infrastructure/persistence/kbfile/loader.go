// Package kbfile reads knowledge bases written as YAML documents and keeps a
// served knowledge base in sync with its file.
package kbfile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/ithailevi/expert/domain/core/aggregates"
	"github.com/ithailevi/expert/domain/core/entities"
	"github.com/ithailevi/expert/domain/core/valueobjects"
	pkgerrors "github.com/ithailevi/expert/pkg/errors"
	"github.com/ithailevi/expert/pkg/utils"
)

// Document is the on-disk form of a knowledge base
//
//	relations:
//	  - id: smallerThan
//	    transitive: true
//	  - id: biggerThan
//	    transitive: true
//	    inverseFor: smallerThan
//	concepts: [ant, dog]
//	facts:
//	  - {subject: ant, relation: smallerThan, object: dog}
type Document struct {
	Relations []RelationEntry `yaml:"relations" validate:"dive"`
	Concepts  []string        `yaml:"concepts" validate:"dive,required"`
	Facts     []FactEntry     `yaml:"facts" validate:"dive"`
}

// RelationEntry declares one relation
type RelationEntry struct {
	ID         string `yaml:"id" validate:"required"`
	Transitive bool   `yaml:"transitive"`
	InverseFor string `yaml:"inverseFor,omitempty"`
	Implies    string `yaml:"implies,omitempty"`
}

// FactEntry declares one fact. Concepts are created on first mention.
type FactEntry struct {
	Subject  string `yaml:"subject" validate:"required"`
	Relation string `yaml:"relation" validate:"required"`
	Object   string `yaml:"object" validate:"required"`
}

// Load reads and validates the document at path
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, pkgerrors.NewNotFoundError("knowledge base " + path).WithCause(err)
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to read knowledge base %s", path)
	}
	return Decode(bytes.NewReader(data))
}

// Decode reads and validates a document
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, pkgerrors.NewValidationError("malformed knowledge base").WithCause(err)
	}
	if err := utils.ValidateStruct(&doc); err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	return &doc, nil
}

// Build turns the document into a Domain. Relations are created in document
// order, so inverseFor must name an earlier relation or a built-in; implies
// may point anywhere in the document. Every broken reference is reported,
// not just the first.
func (doc *Document) Build(opts ...aggregates.Option) (*aggregates.Domain, error) {
	d := aggregates.NewDomain(opts...)
	var errs error

	for i, entry := range doc.Relations {
		desc := aggregates.RelationDescriptor{
			ID:         valueobjects.MustRelationID(entry.ID),
			Transitive: entry.Transitive,
		}
		if entry.InverseFor != "" {
			inverse, err := lookupRelation(d, entry.InverseFor)
			if err != nil {
				// still create the relation so facts using it resolve
				errs = multierr.Append(errs, err.WithDetail("entry", fmt.Sprintf("relations[%d]", i)))
			}
			desc.InverseFor = inverse
		}
		if _, err := d.CreateRelation(desc); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	for i, entry := range doc.Relations {
		if entry.Implies == "" {
			continue
		}
		relation, ok := d.FetchRelation(valueobjects.MustRelationID(entry.ID))
		if !ok {
			continue
		}
		implied, err := lookupRelation(d, entry.Implies)
		if err != nil {
			errs = multierr.Append(errs, err.WithDetail("entry", fmt.Sprintf("relations[%d]", i)))
			continue
		}
		relation.Implies(implied)
	}

	for _, name := range doc.Concepts {
		d.Concept(name)
	}

	for i, fact := range doc.Facts {
		relation, err := lookupRelation(d, fact.Relation)
		if err != nil {
			errs = multierr.Append(errs, err.WithDetail("entry", fmt.Sprintf("facts[%d]", i)))
			continue
		}
		if err := d.Establish(d.Concept(fact.Subject), relation, d.Concept(fact.Object)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if errs != nil {
		return nil, errs
	}
	return d, nil
}

// LoadDomain loads the document at path and builds it
func LoadDomain(path string, opts ...aggregates.Option) (*aggregates.Domain, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	return doc.Build(opts...)
}

func lookupRelation(d *aggregates.Domain, id string) (*entities.Relation, *pkgerrors.AppError) {
	r, ok := d.FetchRelation(valueobjects.MustRelationID(id))
	if !ok {
		return nil, pkgerrors.NewNotFoundError("relation " + id)
	}
	return r, nil
}
