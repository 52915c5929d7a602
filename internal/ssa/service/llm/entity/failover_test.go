package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) StatusCode() int { return e.code }

type codeErr struct{ code string }

func (e codeErr) Error() string     { return "vendor failure" }
func (e codeErr) ErrorCode() string { return e.code }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{name: "nil", err: nil, want: FailureOther},
		{name: "status 429", err: statusErr{429}, want: FailureQuota},
		{name: "status 401", err: statusErr{401}, want: FailureAuth},
		{name: "status 403 wrapped", err: fmt.Errorf("call: %w", statusErr{403}), want: FailureAuth},
		{name: "status 500 falls through to message", err: statusErr{500}, want: FailureOther},
		{name: "code resource exhausted", err: codeErr{"RESOURCE_EXHAUSTED"}, want: FailureQuota},
		{name: "code api key invalid", err: codeErr{"API_KEY_INVALID"}, want: FailureAuth},
		{name: "message 429", err: errors.New("Error 429, Message: quota exceeded"), want: FailureQuota},
		{name: "message resource exhausted", err: errors.New("RESOURCE_EXHAUSTED: try later"), want: FailureQuota},
		{name: "message api key", err: errors.New("API_KEY_INVALID: key not valid"), want: FailureAuth},
		{name: "message 403", err: errors.New("got 403 from upstream"), want: FailureAuth},
		{name: "quota wins over auth", err: errors.New("401 then 429"), want: FailureQuota},
		{name: "other", err: errors.New("connection reset by peer"), want: FailureOther},
		{name: "classified", err: &ProviderError{Kind: FailureAuth, Message: "x"}, want: FailureAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestNewProviderError(t *testing.T) {
	cause := statusErr{429}
	pe := NewProviderError(cause, "gemini", "gemini-2.0-flash")
	assert.Equal(t, FailureQuota, pe.Kind)
	assert.Equal(t, 429, pe.StatusCode)
	assert.ErrorIs(t, pe, cause)
	assert.Equal(t, "status 429 (HTTP 429)", pe.Error())

	again := NewProviderError(fmt.Errorf("round 2: %w", pe), "other", "")
	assert.Same(t, pe, again)
	assert.Equal(t, "gemini", again.Provider)

	assert.Nil(t, NewProviderError(nil, "p", "m"))
}
