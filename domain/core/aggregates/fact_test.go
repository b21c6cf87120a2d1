package aggregates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ithailevi/expert/domain/core/valueobjects"
	pkgerrors "github.com/ithailevi/expert/pkg/errors"
)

func TestEstablish_StandaloneRelation(t *testing.T) {
	d := createTestDomain(t)
	dog := d.Concept("")
	mammal := d.Concept("")

	require.NoError(t, d.Establish(dog, d.Isa(), mammal))
	assert.True(t, holds(t, d.Example(), dog, mammal))
	assert.True(t, holds(t, d.Isa(), mammal, dog))
}

func TestEstablish_Transitivity(t *testing.T) {
	tests := []struct {
		name       string
		transitive bool
		want       bool
	}{
		{name: "not transitive by default", transitive: false, want: false},
		{name: "transitive", transitive: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := createTestDomain(t)
			smallerThan := mustRelation(t, d, RelationDescriptor{
				ID:         valueobjects.MustRelationID("smallerThan"),
				Transitive: tt.transitive,
			})
			ant, dog, elephant := d.Concept("ant"), d.Concept("dog"), d.Concept("elephant")

			_, err := ant.Do("smallerThan", dog)
			require.NoError(t, err)
			_, err = dog.Do("smallerThan", elephant)
			require.NoError(t, err)

			assert.Equal(t, tt.want, holds(t, smallerThan, elephant, ant))
			assert.True(t, holds(t, smallerThan, dog, ant))
		})
	}
}

func TestEstablish_MutualInverseTransitive(t *testing.T) {
	d := createTestDomain(t)
	smallerThan := mustRelation(t, d, RelationDescriptor{ID: valueobjects.MustRelationID("smallerThan"), Transitive: true})
	biggerThan := mustRelation(t, d, RelationDescriptor{ID: valueobjects.MustRelationID("biggerThan"), Transitive: true, InverseFor: smallerThan})
	ant, dog, elephant := d.Concept("ant"), d.Concept("dog"), d.Concept("elephant")

	_, err := ant.Fact(smallerThan, dog)
	require.NoError(t, err)
	_, err = dog.Fact(smallerThan, elephant)
	require.NoError(t, err)

	assert.True(t, holds(t, biggerThan, ant, elephant))
	assert.True(t, holds(t, smallerThan, elephant, ant))
	assert.False(t, holds(t, biggerThan, elephant, ant))

	bigger, err := biggerThan.Query(elephant)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog", "ant"}, conceptNames(bigger))
}

func TestEstablish_InverseThroughInheritance(t *testing.T) {
	d := createTestDomain(t)
	smallerThan := mustRelation(t, d, RelationDescriptor{ID: valueobjects.MustRelationID("smallerThan"), Transitive: true})
	biggerThan := mustRelation(t, d, RelationDescriptor{ID: valueobjects.MustRelationID("biggerThan"), Transitive: true, InverseFor: smallerThan})
	mammal, dog, elephant := d.Concept("mammal"), d.Concept("dog"), d.Concept("elephant")

	_, err := dog.Do("isa", mammal)
	require.NoError(t, err)
	_, err = elephant.Do("isa", mammal)
	require.NoError(t, err)
	_, err = dog.Do("smallerThan", elephant)
	require.NoError(t, err)

	assert.True(t, holds(t, biggerThan, dog, elephant))
}

func TestEstablish_Inheritance(t *testing.T) {
	d := createTestDomain(t)
	hasProperty := mustRelation(t, d, RelationDescriptor{ID: valueobjects.MustRelationID("hasProperty")})
	dog, mammal, warm := d.Concept("dog"), d.Concept("mammal"), d.Concept("warmBlooded")

	require.NoError(t, d.Establish(dog, d.Isa(), mammal))
	require.NoError(t, d.Establish(mammal, hasProperty, warm))

	links, err := dog.AllLinksOf(hasProperty)
	require.NoError(t, err)
	assert.Contains(t, links, warm)
	assert.True(t, holds(t, hasProperty, warm, dog))

	members, err := mammal.AllLinksOf(d.Example())
	require.NoError(t, err)
	assert.Contains(t, members, dog)
}

func TestEstablish_ExampleIsNotInherited(t *testing.T) {
	d := createTestDomain(t)
	animal, mammal, bird := d.Concept("animal"), d.Concept("mammal"), d.Concept("bird")
	dog, robin := d.Concept("dog"), d.Concept("robin")

	for _, f := range [][2]string{{"mammal", "animal"}, {"bird", "animal"}, {"dog", "mammal"}, {"robin", "bird"}} {
		require.NoError(t, d.Establish(d.Concept(f[0]), d.Isa(), d.Concept(f[1])))
	}

	mammals, err := d.Example().Query(mammal)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog"}, conceptNames(mammals))

	animals, err := d.Example().Query(animal)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mammal", "bird", "dog", "robin"}, conceptNames(animals))

	assert.False(t, holds(t, d.Example(), robin, mammal))
	assert.True(t, holds(t, d.Isa(), animal, dog))
	assert.False(t, holds(t, d.Isa(), bird, dog))
}

func TestEstablish_Implication(t *testing.T) {
	d := createTestDomain(t)
	wing, plane := d.Concept(""), d.Concept("")
	partOf := mustRelation(t, d, RelationDescriptor{})
	attachedTo := mustRelation(t, d, RelationDescriptor{ID: valueobjects.MustRelationID("attachedTo")}).Implies(partOf)

	_, err := wing.Do("attachedTo", plane)
	require.NoError(t, err)

	assert.True(t, holds(t, partOf, plane, wing))
	assert.True(t, holds(t, attachedTo, plane, wing))
	assert.Equal(t, "0", partOf.ID().String())
}

func TestEstablish_ImplicationCarriesInverse(t *testing.T) {
	d := createTestDomain(t)
	partOf := mustRelation(t, d, RelationDescriptor{ID: valueobjects.MustRelationID("partOf"), Transitive: true})
	hasPart := mustRelation(t, d, RelationDescriptor{ID: valueobjects.MustRelationID("hasPart"), Transitive: true, InverseFor: partOf})
	attachedTo := mustRelation(t, d, RelationDescriptor{ID: valueobjects.MustRelationID("attachedTo")}).Implies(partOf)
	wheel, axle, car := d.Concept("wheel"), d.Concept("axle"), d.Concept("car")

	require.NoError(t, d.Establish(wheel, attachedTo, axle))
	require.NoError(t, d.Establish(axle, attachedTo, car))

	assert.True(t, holds(t, hasPart, wheel, car))
	assert.True(t, holds(t, partOf, car, wheel))
	assert.False(t, holds(t, attachedTo, car, wheel))
}

func TestEstablish_ImplicationCycleLeavesDomainUntouched(t *testing.T) {
	d := createTestDomain(t)
	a := mustRelation(t, d, RelationDescriptor{ID: valueobjects.MustRelationID("a")})
	b := mustRelation(t, d, RelationDescriptor{ID: valueobjects.MustRelationID("b")})
	a.Implies(b)
	b.Implies(a)
	x, y := d.Concept("x"), d.Concept("y")
	version := d.Version()

	err := d.Establish(x, a, y)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCycle(err))
	assert.Empty(t, x.LinkedRelations())
	assert.Equal(t, version, d.Version())
}

func TestEstablish_RejectsForeignOrMissingParts(t *testing.T) {
	d := createTestDomain(t)
	other := createTestDomain(t)
	x, y := d.Concept("x"), d.Concept("y")
	stranger := other.Concept("x")

	tests := []struct {
		name string
		err  error
	}{
		{"nil subject", d.Establish(nil, d.Isa(), y)},
		{"nil relation", d.Establish(x, nil, y)},
		{"nil object", d.Establish(x, d.Isa(), nil)},
		{"foreign concept", d.Establish(x, d.Isa(), stranger)},
		{"foreign relation", d.Establish(x, other.Isa(), y)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, pkgerrors.IsValidation(tt.err))
		})
	}
	assert.Empty(t, x.LinkedRelations())
}

func TestEstablish_IsIdempotent(t *testing.T) {
	d := createTestDomain(t)
	dog, mammal := d.Concept("dog"), d.Concept("mammal")

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Establish(dog, d.Isa(), mammal))
	}
	assert.Len(t, dog.DirectLinks(d.Isa()), 1)
	assert.Len(t, mammal.DirectLinks(d.Example()), 1)
}

func TestEstablish_MultipleSources(t *testing.T) {
	d := createTestDomain(t)
	likes := mustRelation(t, d, RelationDescriptor{ID: valueobjects.MustRelationID("likes")})
	ann, bob := d.Concept("ann"), d.Concept("bob")
	for _, f := range [][2]string{{"ann", "tea"}, {"ann", "jazz"}, {"bob", "jazz"}, {"bob", "chess"}} {
		require.NoError(t, d.Establish(d.Concept(f[0]), likes, d.Concept(f[1])))
	}

	shared, err := likes.Query(ann, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"jazz"}, conceptNames(shared))
	assert.False(t, holds(t, likes, d.Concept("tea"), ann, bob))
}
