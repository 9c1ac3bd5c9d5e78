package plddt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		value float64
		band  string
		color string
	}{
		{100, VeryHigh, "#0053D6"},
		{90.01, VeryHigh, "#0053D6"},
		{90, Confident, "#00C9FF"},
		{70.5, Confident, "#00C9FF"},
		{70, Low, "#FFE71A"},
		{50.1, Low, "#FFE71A"},
		{50, VeryLow, "#FF9100"},
		{0, VeryLow, "#FF9100"},
	}
	for _, tc := range cases {
		b := Classify(tc.value)
		assert.Equal(t, tc.band, b.Name, "value %v", tc.value)
		assert.Equal(t, tc.color, b.Color, "value %v", tc.value)
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(0))
	assert.NoError(t, Validate(100))
	assert.ErrorIs(t, Validate(-0.1), ErrOutOfRange)
	assert.ErrorIs(t, Validate(100.5), ErrOutOfRange)
	assert.ErrorIs(t, Validate(math.NaN()), ErrOutOfRange)
}

func TestLegend(t *testing.T) {
	l := Legend()
	assert.Len(t, l, 4)
	assert.Equal(t, VeryHigh, l[0].Name)

	l[0].Name = "changed"
	assert.Equal(t, VeryHigh, Legend()[0].Name)
}
