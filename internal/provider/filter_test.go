package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter map[string]any
		want   string
	}{
		{
			name:   "single key",
			filter: map[string]any{"name": "sim-a"},
			want:   "name eq sim-a",
		},
		{
			name: "nested keys become dotted paths",
			filter: map[string]any{
				"labels": map[string]any{"simrun.io/role": "simulation"},
				"status": "running",
			},
			want: "labels.simrun.io/role eq simulation AND status eq running",
		},
		{
			name: "string maps are flattened too",
			filter: map[string]any{
				"labels": map[string]string{"b": "2", "a": "1"},
			},
			want: "labels.a eq 1 AND labels.b eq 2",
		},
		{
			name:   "scalar values",
			filter: map[string]any{"a": map[string]any{"b": map[string]any{"c": 3}}, "d": true},
			want:   "a.b.c eq 3 AND d eq true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeFilter_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		filter map[string]any
	}{
		{"nil", nil},
		{"empty", map[string]any{}},
		{"empty nested", map[string]any{"labels": map[string]any{}}},
		{"empty key", map[string]any{"": "x"}},
		{"empty value", map[string]any{"name": ""}},
		{"slice value", map[string]any{"name": []string{"a", "b"}}},
		{"nil value", map[string]any{"name": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeFilter(tt.filter)
			require.Error(t, err)

			var invalid *InvalidFilter
			assert.True(t, errors.As(err, &invalid))
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}
}

func TestFlattenFilter_Sorted(t *testing.T) {
	conds, err := FlattenFilter(map[string]any{"z": "1", "a": "2", "m": map[string]any{"x": "3"}})
	require.NoError(t, err)

	keys := make([]string, 0, len(conds))
	for _, c := range conds {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"a", "m.x", "z"}, keys)
}
