package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractUserDomain(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane@example.com", "example.com"},
		{"user@Gmail.COM", "gmail.com"},
		{`"a@b"@example.org`, "example.org"},
		{"invalid", LabelUnknown},
		{"user@", LabelUnknown},
		{"@example.com", LabelUnknown},
		{"", LabelUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractUserDomain(tt.email))
		})
	}
}

func TestRouteAndMethodLabels(t *testing.T) {
	assert.Equal(t, "/api/gmail/messages/:id", RouteLabel("/api/gmail/messages/:id"))
	assert.Equal(t, LabelUnmatched, RouteLabel(""))

	assert.Equal(t, "GET", MethodLabel("GET"))
	assert.Equal(t, LabelOther, MethodLabel("PROPFIND"))
}
