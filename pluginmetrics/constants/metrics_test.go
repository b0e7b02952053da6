//go:build unit

package constant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeMetricLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "short string", input: "correlator", expected: "correlator"},
		{name: "exactly max length", input: strings.Repeat("a", MaxMetricLabelLength), expected: strings.Repeat("a", MaxMetricLabelLength)},
		{name: "exceeds max length", input: strings.Repeat("b", MaxMetricLabelLength+10), expected: strings.Repeat("b", MaxMetricLabelLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := SanitizeMetricLabel(tt.input)
			assert.Equal(t, tt.expected, result)
			assert.LessOrEqual(t, len(result), MaxMetricLabelLength)
		})
	}
}
