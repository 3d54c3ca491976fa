package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest("Summarize", "gpt-4o",
		WithSystemPrompt("Be brief"),
		WithMaxTokens(200),
		WithTemperature(0.3),
	)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, "Be brief", req.SystemPrompt)
	assert.Equal(t, 200, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.3, *req.Temperature, 1e-9)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, Message{Role: RoleUser, Content: "Summarize"}, req.Messages[0])
}

func TestNewRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		model   string
		opts    []RequestOption
		wantErr error
	}{
		{"blank prompt", "  ", "m", nil, ErrEmptyPrompt},
		{"blank model", "p", "", nil, ErrEmptyModel},
		{"negative tokens", "p", "m", []RequestOption{WithMaxTokens(-1)}, ErrInvalidMaxTokens},
		{"temperature too high", "p", "m", []RequestOption{WithTemperature(2.5)}, ErrInvalidTemperature},
		{"temperature negative", "p", "m", []RequestOption{WithTemperature(-0.1)}, ErrInvalidTemperature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequest(tt.prompt, tt.model, tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTokenUsage_Add(t *testing.T) {
	u := TokenUsage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}
	u.Add(TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30})
	assert.Equal(t, TokenUsage{InputTokens: 11, OutputTokens: 22, TotalTokens: 33}, u)
}
