package llm

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "401 is auth", status: http.StatusUnauthorized, wantErr: ErrAuth},
		{name: "403 is auth", status: http.StatusForbidden, wantErr: ErrAuth},
		{name: "429 is rate limited", status: http.StatusTooManyRequests, wantErr: ErrRateLimited},
		{name: "404 is unavailable", status: http.StatusNotFound, wantErr: ErrUnavailable},
		{name: "500 is unavailable", status: http.StatusInternalServerError, wantErr: ErrUnavailable},
		{name: "503 is unavailable", status: http.StatusServiceUnavailable, wantErr: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStatus(tt.status, "body")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// 400 stays generic: not retryable, not an auth failure.
	err := classifyStatus(http.StatusBadRequest, "bad payload")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrAuth))
	assert.False(t, IsRetryable(err))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrRateLimited)))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrUnavailable)))
	assert.False(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrAuth)))
	assert.False(t, IsRetryable(errors.New("something else")))
}

func TestStripMarkdownFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripMarkdownFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripMarkdownFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripMarkdownFences(`{"a": 1}`))
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{name: "bare object", in: `{"a": 1}`, want: `{"a": 1}`, wantOK: true},
		{name: "fenced object", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`, wantOK: true},
		{name: "object with prose around it", in: `Sure! {"a": 1} Hope that helps.`, want: `{"a": 1}`, wantOK: true},
		{name: "nested braces keep outermost", in: `{"a": {"b": 2}}`, want: `{"a": {"b": 2}}`, wantOK: true},
		{name: "no object", in: "cannot answer", wantOK: false},
		{name: "inverted delimiters", in: "} nope {", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
