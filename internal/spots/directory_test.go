package spots

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/models"
)

func TestParse(t *testing.T) {
	t.Run("empty uses builtin", func(t *testing.T) {
		d, err := Parse("  ")
		require.NoError(t, err)
		assert.Len(t, d.List(), len(Builtin))

		s, err := d.Resolve(context.Background(), "mar-del-plata")
		require.NoError(t, err)
		assert.InDelta(t, -38.0055, s.Point.Latitude, 1e-9)
	})

	t.Run("custom entries", func(t *testing.T) {
		d, err := Parse("pipe|Banzai Pipeline|21.665|-158.053; chicama||-7.7|-79.44;")
		require.NoError(t, err)

		assert.Equal(t, []models.Spot{
			{ID: "chicama", Name: "chicama", Point: models.Point{Latitude: -7.7, Longitude: -79.44}},
			{ID: "pipe", Name: "Banzai Pipeline", Point: models.Point{Latitude: 21.665, Longitude: -158.053}},
		}, d.List())
	})

	tests := []struct {
		name  string
		input string
	}{
		{"wrong field count", "a|b|1"},
		{"bad latitude", "a|b|north|1"},
		{"bad longitude", "a|b|1|east"},
		{"out of range", "a|b|91|0"},
		{"duplicate", "a|b|1|1;a|c|2|2"},
		{"missing id", "|b|1|1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	d, err := NewDirectory(Builtin)
	require.NoError(t, err)

	_, err = d.Resolve(context.Background(), "atlantis")
	assert.ErrorIs(t, err, huberrors.ErrNotFound)
}
