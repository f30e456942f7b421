package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatQuoteID(t *testing.T) {
	tests := []struct {
		input    any
		expected string
	}{
		{"Q26-1-00006", "Q26-00006"},
		{"Q26-00006", "Q26-00006"},
		{"Q26", "Q26"},
		{"A-B-C-D", "A-B-C-D"},
		{"--", "-"},
		{"", ""},
		{nil, ""},
		{12, "12"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatQuoteID(tt.input), "input %v", tt.input)
	}
}
