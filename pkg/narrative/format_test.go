package narrative

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{0, "Ksh 0"},
		{950, "Ksh 950"},
		{1000, "Ksh 1,000"},
		{1234567, "Ksh 1,234,567"},
		{2500.5, "Ksh 2,500.50"},
		{-1200, "Ksh -1,200"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatMoney(tt.amount))
	}
}

func TestCountNoun(t *testing.T) {
	assert.Equal(t, "1 sale", countNoun(1, "sale"))
	assert.Equal(t, "3 sales", countNoun(3, "sale"))
	assert.Equal(t, "0 products", countNoun(0, "product"))
	assert.Equal(t, "1 customer", countNoun(1, "customers"))
	assert.Equal(t, "1,200 units", countNoun(1200, "unit"))
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		value    any
		expected float64
		ok       bool
	}{
		{int64(5), 5, true},
		{int32(5), 5, true},
		{5.5, 5.5, true},
		{"12.5", 12.5, true},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		f, ok := toFloat(tt.value)
		assert.Equal(t, tt.ok, ok, "value %v", tt.value)
		if ok {
			assert.Equal(t, tt.expected, f)
		}
	}
}
