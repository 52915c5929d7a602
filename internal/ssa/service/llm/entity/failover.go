package entity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FailureKind classifies why a completion request failed. It decides the
// banner shown before the deterministic fallback answer.
type FailureKind int32

const (
	// FailureOther is any failure that is neither quota nor auth.
	FailureOther FailureKind = 0

	// FailureQuota indicates exhausted quota or rate limiting (HTTP 429,
	// RESOURCE_EXHAUSTED).
	FailureQuota FailureKind = 1

	// FailureAuth indicates rejected credentials (HTTP 401/403,
	// API_KEY_INVALID).
	FailureAuth FailureKind = 2
)

func (k FailureKind) String() string {
	switch k {
	case FailureQuota:
		return "quota"
	case FailureAuth:
		return "auth"
	case FailureOther:
		return "other"
	default:
		return fmt.Sprintf("FailureKind(%d)", k)
	}
}

// ProviderError is a classified completion failure carrying the provider
// context and, when known, the HTTP status and vendor error code.
type ProviderError struct {
	Kind       FailureKind `json:"kind"`
	Provider   string      `json:"provider,omitempty"`
	Model      string      `json:"model,omitempty"`
	StatusCode int         `json:"status_code,omitempty"`
	Code       string      `json:"code,omitempty"`
	Message    string      `json:"message"`
	Cause      error       `json:"-"`
}

func (e *ProviderError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (HTTP %d)", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&sb, " [%s]", e.Code)
	}
	return sb.String()
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// NewProviderError wraps err with provider context and classifies it. An
// error that is already a ProviderError is enriched and returned as is.
func NewProviderError(err error, provider, model string) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Provider == "" {
			pe.Provider = provider
		}
		if pe.Model == "" {
			pe.Model = model
		}
		return pe
	}
	return &ProviderError{
		Kind:       ClassifyError(err),
		Provider:   provider,
		Model:      model,
		StatusCode: extractStatusCode(err),
		Code:       extractErrorCode(err),
		Message:    err.Error(),
		Cause:      err,
	}
}

// ClassifyError determines the FailureKind of err: already classified, then
// HTTP status, then vendor code, then message patterns.
func ClassifyError(err error) FailureKind {
	if err == nil {
		return FailureOther
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}

	if status := extractStatusCode(err); status != 0 {
		if kind, ok := classifyFromStatus(status); ok {
			return kind
		}
	}

	if code := extractErrorCode(err); code != "" {
		if kind, ok := classifyFromCode(code); ok {
			return kind
		}
	}

	return classifyFromMessage(err.Error())
}

func classifyFromStatus(status int) (FailureKind, bool) {
	switch status {
	case http.StatusTooManyRequests:
		return FailureQuota, true
	case http.StatusUnauthorized, http.StatusForbidden:
		return FailureAuth, true
	}
	return FailureOther, false
}

func classifyFromCode(code string) (FailureKind, bool) {
	switch strings.ToUpper(code) {
	case "RESOURCE_EXHAUSTED", "RATE_LIMIT_EXCEEDED", "INSUFFICIENT_QUOTA":
		return FailureQuota, true
	case "API_KEY_INVALID", "UNAUTHENTICATED", "PERMISSION_DENIED", "INVALID_API_KEY":
		return FailureAuth, true
	}
	return FailureOther, false
}

var (
	quotaPatterns = []string{
		"429", "resource_exhausted", "quota", "rate limit", "rate_limit", "too many requests",
	}
	authPatterns = []string{
		"401", "403", "api_key_invalid", "invalid api key", "invalid_api_key",
		"unauthorized", "unauthenticated", "permission_denied",
	}
)

// classifyFromMessage is the last resort. Quota wins over auth when both
// match.
func classifyFromMessage(msg string) FailureKind {
	lower := strings.ToLower(msg)
	for _, p := range quotaPatterns {
		if strings.Contains(lower, p) {
			return FailureQuota
		}
	}
	for _, p := range authPatterns {
		if strings.Contains(lower, p) {
			return FailureAuth
		}
	}
	return FailureOther
}

type statusCodeCarrier interface {
	StatusCode() int
}

type statusCarrier interface {
	Status() int
}

func extractStatusCode(err error) int {
	var sc statusCodeCarrier
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	var s statusCarrier
	if errors.As(err, &s) {
		return s.Status()
	}
	return 0
}

type errorCodeCarrier interface {
	ErrorCode() string
}

func extractErrorCode(err error) string {
	var c errorCodeCarrier
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}
