package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func session(userMsg, assistantMsg string) *Session {
	return &Session{
		Messages: []Message{
			{Seq: 0, Role: RoleUser, Content: userMsg},
			{Seq: 1, Role: RoleAssistant, Content: assistantMsg},
		},
	}
}

func TestExtractSummary(t *testing.T) {
	tests := []struct {
		name string
		user string
		want string
	}{
		{
			name: "first sentence",
			user: "Fix the auth bug. It happens on login.",
			want: "Fix the auth bug.",
		},
		{
			name: "skips markdown headers",
			user: "# Task\nAdd rate limiting to the API",
			want: "Add rate limiting to the API",
		},
		{
			name: "empty message",
			user: "",
			want: "",
		},
		{
			name: "truncates long lines",
			user: strings.Repeat("a", 200),
			want: strings.Repeat("a", 120),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := session(tt.user, "")
			assert.Equal(t, tt.want, s.ExtractSummary())
		})
	}
}

func TestExtractWorkSummaryHeader(t *testing.T) {
	s := session("task", "Some preamble\n\n## Summary\n\n- Implemented token refresh in auth.go\n- Other stuff")
	assert.Equal(t, "Implemented token refresh in auth.go", s.ExtractWorkSummary())
}

func TestExtractWorkSummaryKeywords(t *testing.T) {
	s := session("task", "Here is what happened.\nI implemented and fixed the session store.\nGoodbye.")
	assert.Equal(t, "I implemented and fixed the session store.", s.ExtractWorkSummary())
}

func TestExtractWorkSummaryFallsBackToFirstLine(t *testing.T) {
	s := session("task", "# heading\nnothing notable here at all\nok")
	assert.Equal(t, "nothing notable here at all", s.ExtractWorkSummary())
}

func TestExtractWorkSummaryIgnoresCodeBlocks(t *testing.T) {
	s := session("task", "```go\nimplemented := true\n```\nUpdated the parser")
	assert.Equal(t, "Updated the parser", s.ExtractWorkSummary())
}

func TestStripMarkdown(t *testing.T) {
	assert.Equal(t, "bold item", stripMarkdown("- **bold** item"))
	assert.Equal(t, "numbered", stripMarkdown("12. numbered"))
	assert.Equal(t, "plain", stripMarkdown("  plain  "))
}
