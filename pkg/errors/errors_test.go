package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Predicates(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		check  func(error) bool
		status int
	}{
		{"not found", NewNotFoundError("concept dog"), IsNotFound, http.StatusNotFound},
		{"conflict", NewConflictError("duplicate"), IsConflict, http.StatusConflict},
		{"validation", NewValidationError("bad"), IsValidation, http.StatusBadRequest},
		{"cycle", NewCycleError("relation isa", []string{"a", "b", "a"}), IsCycle, http.StatusUnprocessableEntity},
		{"limit", NewLimitExceededError("traversal depth", 8), IsLimitExceeded, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))

			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.check(wrapped))
		})
	}
}

func TestCycleError_CarriesPath(t *testing.T) {
	err := NewCycleError("implication chain", []string{"a", "b", "a"})
	assert.Equal(t, []string{"a", "b", "a"}, err.Details["path"])
	assert.Contains(t, err.Error(), "cycle detected in implication chain")
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	plain := stderrors.New("disk on fire")
	wrapped := Wrap(plain, "loading")
	assert.True(t, IsType(wrapped, ErrorTypeInternal))
	assert.ErrorIs(t, wrapped, plain)
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(plain))

	nf := NewNotFoundError("relation partOf")
	assert.True(t, IsNotFound(Wrapf(nf, "fact %d", 3)))
	assert.Contains(t, nf.Message, "fact 3: relation partOf not found")
}
