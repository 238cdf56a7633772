package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "AAPL",
			expected: []string{"AAPL"},
		},
		{
			name:     "two values",
			input:    "AAPL, MSFT",
			expected: []string{"AAPL", "MSFT"},
		},
		{
			name:     "three values with varied spacing",
			input:    "AAPL,  MSFT , GOOG",
			expected: []string{"AAPL", "MSFT", "GOOG"},
		},
		{
			name:     "no spaces after comma",
			input:    "VTI,VXUS",
			expected: []string{"VTI", "VXUS"},
		},
		{
			name:     "trailing comma",
			input:    "VTI,",
			expected: []string{"VTI"},
		},
		{
			name:     "leading comma",
			input:    ",VXUS",
			expected: []string{"VXUS"},
		},
		{
			name:     "only spaces",
			input:    "   ",
			expected: nil,
		},
		{
			name:     "comma only",
			input:    ",",
			expected: nil,
		},
		{
			name:     "multiple commas",
			input:    ",,AAPL,,MSFT,,",
			expected: []string{"AAPL", "MSFT"},
		},
		{
			name:     "exchange-qualified symbols",
			input:    "SPY.US, IWDA.AS",
			expected: []string{"SPY.US", "IWDA.AS"},
		},
		{
			name:     "mixed spacing around values",
			input:    "  AAPL  ,  MSFT  ",
			expected: []string{"AAPL", "MSFT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseCSV(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseCSV_PreservesInput(t *testing.T) {
	input := "AAPL, MSFT"
	originalInput := input

	_ = ParseCSV(input)

	assert.Equal(t, originalInput, input, "input should not be modified")
}
