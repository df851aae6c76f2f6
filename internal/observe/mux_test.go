package observe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimMethod(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected string
	}{
		{
			name:     "POST method with path",
			pattern:  "POST /instantly/campaigns",
			expected: "/instantly/campaigns",
		},
		{
			name:     "GET method with wildcard path",
			pattern:  "GET /instantly/campaigns/{id}",
			expected: "/instantly/campaigns/{id}",
		},
		{
			name:     "path without method",
			pattern:  "/healthcheck",
			expected: "/healthcheck",
		},
		{
			name:     "invalid method prefix untouched",
			pattern:  "INVALID /path",
			expected: "INVALID /path",
		},
		{
			name:     "lowercase method not stripped",
			pattern:  "get /test",
			expected: "get /test",
		},
		{
			name:     "empty string",
			pattern:  "",
			expected: "",
		},
		{
			name:     "method without trailing space",
			pattern:  "GET",
			expected: "GET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TrimMethod(tt.pattern))
		})
	}
}
