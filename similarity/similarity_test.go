package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModel(t *testing.T) {
	tests := []struct {
		name    string
		loc     float64
		scale   float64
		wantErr bool
	}{
		{"Default", 1.0, 0.25, false},
		{"ZeroLoc", 0, 1, false},
		{"ZeroScale", 1, 0, true},
		{"NegativeScale", 1, -0.5, true},
		{"NaNLoc", math.NaN(), 1, true},
		{"InfScale", 1, math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewModel(tt.loc, tt.scale)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidModel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.loc, m.Loc)
			assert.Equal(t, tt.scale, m.Scale)
		})
	}
}

func TestSimilarityBounds(t *testing.T) {
	m := Default()

	for i := 0; i < 100; i++ {
		d := float64(i) / 10
		s := m.Similarity(d)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestSimilarityMonotonic(t *testing.T) {
	m := Default()

	prev := m.Similarity(0)
	for i := 1; i <= 1000; i++ {
		s := m.Similarity(float64(i) / 100)
		assert.LessOrEqual(t, s, prev, "distance %v", float64(i)/100)
		prev = s
	}
}

func TestSimilarityStability(t *testing.T) {
	m := Default()

	t.Run("Midpoint", func(t *testing.T) {
		assert.InDelta(t, 0.5, m.Similarity(m.Loc), 1e-12)
	})

	t.Run("ZeroDistance", func(t *testing.T) {
		s := m.Similarity(0)
		assert.Greater(t, s, 0.98)
		assert.LessOrEqual(t, s, 1.0)
	})

	t.Run("HugeDistance", func(t *testing.T) {
		s := m.Similarity(1e308)
		assert.False(t, math.IsNaN(s))
		assert.Equal(t, 0.0, s)
	})

	t.Run("SteepCurve", func(t *testing.T) {
		steep, err := NewModel(1, 1e-9)
		require.NoError(t, err)
		assert.Equal(t, 1.0, steep.Similarity(0))
		assert.Equal(t, 0.0, steep.Similarity(2))
	})

	t.Run("NaN", func(t *testing.T) {
		assert.Equal(t, 0.0, m.Similarity(math.NaN()))
	})
}
