package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{"initialize", &InitializeError{Provider: "storage", Missing: []string{"bucket"}}, ErrInitialize, "storage provider is missing required config: bucket"},
		{"not found", &NotFoundError{Kind: "image", Name: "debian-99"}, ErrNotFound, `image "debian-99" not found`},
		{"duplicate", &DuplicateInstanceName{Name: "sim-a"}, ErrDuplicateName, `instance name "sim-a" is already in use`},
		{"invalid filter", &InvalidFilter{Reason: "filter is empty"}, ErrInvalidFilter, "invalid filter: filter is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("create: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("x: %w", &NotFoundError{Kind: "zone", Name: "mars1"})))
	assert.False(t, IsNotFound(errors.New("other")))
	assert.False(t, IsNotFound(nil))
}

func TestCleanupError(t *testing.T) {
	ce := &CleanupError{}
	ce.Add(nil)
	assert.False(t, ce.HasErrors())

	first := errors.New("disk busy")
	ce.Add(first)
	ce.Add(errors.New("timeout"))

	assert.True(t, ce.HasErrors())
	assert.ErrorIs(t, ce, first)
	assert.Contains(t, ce.Error(), "2 error(s)")
}
