package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundInterval(t *testing.T) {
	tests := []struct {
		lower, upper float64
		wantLo       float64
		wantHi       float64
	}{
		{0.13, 0.87, 0.1, 0.9},
		{-3.2, 47.5, -10, 50},
		{47.5, -3.2, -10, 50},
		{120, 180, 120, 180},
		{0, 0, 0, 0},
	}
	for _, tt := range tests {
		lo, hi := RoundInterval(tt.lower, tt.upper)
		assert.InDelta(t, tt.wantLo, lo, 1e-12, "lower of (%v, %v)", tt.lower, tt.upper)
		assert.InDelta(t, tt.wantHi, hi, 1e-12, "upper of (%v, %v)", tt.lower, tt.upper)
	}
}

func TestReasonableDivisions(t *testing.T) {
	tests := []struct {
		name         string
		lower, upper float64
		max          int
		want         []float64
	}{
		{"unit steps of two", 0, 10, 5, []float64{0, 2, 4, 6, 8, 10}},
		{"quarter steps", 0, 100, 4, []float64{0, 25, 50, 75, 100}},
		{"offset bounds", 3, 17, 3, []float64{5, 10, 15}},
		{"degenerate", 4, 4, 8, []float64{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReasonableDivisions(tt.lower, tt.upper, tt.max)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}
