package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConceptID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "named", input: "dog"},
		{name: "numeric looking", input: "42"},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewConceptID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, id.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, id.String())
			assert.False(t, id.IsZero())
		})
	}
}

func TestSequentialIDs(t *testing.T) {
	assert.Equal(t, "0", SequentialConceptID(0).String())
	assert.Equal(t, "17", SequentialRelationID(17).String())
	assert.True(t, SequentialConceptID(3).Equals(MustConceptID("3")))
}

func TestMustIDs_PanicOnEmpty(t *testing.T) {
	assert.Panics(t, func() { MustConceptID("") })
	assert.Panics(t, func() { MustRelationID("") })
}

func TestIDs_AsJSONMapKeys(t *testing.T) {
	in := map[RelationID][]ConceptID{
		MustRelationID("isa"): {MustConceptID("mammal"), SequentialConceptID(0)},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"isa":["mammal","0"]}`, string(data))

	var out map[RelationID][]ConceptID
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	var bad ConceptID
	assert.Error(t, bad.UnmarshalText(nil))
}

func TestNewDomainID(t *testing.T) {
	a, b := NewDomainID(), NewDomainID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a.String())
	assert.NoError(t, err)
}
