package valueobjects

import (
	"errors"
	"strconv"

	"github.com/google/uuid"
)

// ConceptID identifies a concept within one domain. It is either supplied by
// the caller or assigned from the domain's sequential counter, in which case
// its value is the decimal counter value.
type ConceptID struct {
	value string
}

// NewConceptID creates a ConceptID from a caller-supplied name
func NewConceptID(id string) (ConceptID, error) {
	if id == "" {
		return ConceptID{}, errors.New("concept ID cannot be empty")
	}
	return ConceptID{value: id}, nil
}

// MustConceptID is like NewConceptID but panics on an empty id
func MustConceptID(id string) ConceptID {
	cid, err := NewConceptID(id)
	if err != nil {
		panic(err)
	}
	return cid
}

// SequentialConceptID creates the ConceptID for counter value n
func SequentialConceptID(n int) ConceptID {
	return ConceptID{value: strconv.Itoa(n)}
}

// String returns the string representation of the ConceptID
func (id ConceptID) String() string {
	return id.value
}

// Equals checks if two ConceptIDs are equal
func (id ConceptID) Equals(other ConceptID) bool {
	return id.value == other.value
}

// IsZero reports whether the id was omitted
func (id ConceptID) IsZero() bool {
	return id.value == ""
}

// MarshalText implements encoding.TextMarshaler so the id can be a JSON map key
func (id ConceptID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *ConceptID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		return errors.New("concept ID cannot be empty")
	}
	id.value = string(data)
	return nil
}

// RelationID identifies a relation within one domain, with the same
// caller-supplied or sequential origin as ConceptID.
type RelationID struct {
	value string
}

// NewRelationID creates a RelationID from a caller-supplied name
func NewRelationID(id string) (RelationID, error) {
	if id == "" {
		return RelationID{}, errors.New("relation ID cannot be empty")
	}
	return RelationID{value: id}, nil
}

// MustRelationID is like NewRelationID but panics on an empty id
func MustRelationID(id string) RelationID {
	rid, err := NewRelationID(id)
	if err != nil {
		panic(err)
	}
	return rid
}

// SequentialRelationID creates the RelationID for counter value n
func SequentialRelationID(n int) RelationID {
	return RelationID{value: strconv.Itoa(n)}
}

// String returns the string representation of the RelationID
func (id RelationID) String() string {
	return id.value
}

// Equals checks if two RelationIDs are equal
func (id RelationID) Equals(other RelationID) bool {
	return id.value == other.value
}

// IsZero reports whether the id was omitted
func (id RelationID) IsZero() bool {
	return id.value == ""
}

// MarshalText implements encoding.TextMarshaler
func (id RelationID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *RelationID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		return errors.New("relation ID cannot be empty")
	}
	id.value = string(data)
	return nil
}

// DomainID identifies one knowledge base instance
type DomainID string

// NewDomainID creates a new random DomainID
func NewDomainID() DomainID {
	return DomainID(uuid.New().String())
}

// String returns the string representation
func (id DomainID) String() string {
	return string(id)
}
