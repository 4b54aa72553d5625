package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjustedSize(t *testing.T) {
	t.Run("sell is unchanged", func(t *testing.T) {
		assert.Equal(t, 1.5, AdjustedSize(1.5, false, true, 0.15))
	})
	t.Run("buy without quote commission is unchanged", func(t *testing.T) {
		assert.Equal(t, 1.5, AdjustedSize(1.5, true, false, 0.15))
	})
	t.Run("buy with quote commission is reduced", func(t *testing.T) {
		got := AdjustedSize(1, true, true, 1)
		assert.InDelta(t, 0.99/1.01, got, 1e-12)
	})
	t.Run("zero commission keeps size", func(t *testing.T) {
		assert.Equal(t, 2.0, AdjustedSize(2, true, true, 0))
	})
}

func TestFloorTo(t *testing.T) {
	cases := []struct {
		name   string
		in     float64
		places int
		want   float64
	}{
		{"positive", 0.123456789, 8, 0.12345678},
		{"negative floors away from zero", -0.1234567, 6, -0.123457},
		{"whole", 1050000.7, 0, 1050000},
		{"exact", 0.5, 8, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FloorTo(tc.in, tc.places))
		})
	}
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 1010000.0, RoundTo(1009999.5, PricePrecision))
	assert.Equal(t, 0.3, RoundTo(0.1+0.2, EpsilonPrecision))
}

func TestCommission(t *testing.T) {
	assert.Equal(t, 0.0, Commission(1000000, 1, 0))
	assert.InDelta(t, 1500.0, Commission(1000000, 1, 0.15), 1e-9)
}

func TestWithinThreshold(t *testing.T) {
	assert.True(t, WithinThreshold(-0.004, 0.005))
	assert.True(t, WithinThreshold(0, 0))
	assert.False(t, WithinThreshold(0.006, 0.005))
}
