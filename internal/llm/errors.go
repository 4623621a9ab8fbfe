package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Kind classifies a remote failure for retry decisions.
type Kind string

const (
	KindAuth      Kind = "auth"      // bad or missing credential
	KindQuota     Kind = "quota"     // rate limit or exhausted quota
	KindTransient Kind = "transient" // network, timeout, 5xx
	KindMalformed Kind = "malformed" // rejected request or unusable response
)

// Error wraps a remote failure with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, treating unclassified errors as transient.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsRetryable reports whether err is worth another attempt.
// Only transient failures are; auth, quota, and malformed fail fast.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == KindTransient
}

func malformed(format string, args ...any) *Error {
	return &Error{Kind: KindMalformed, Err: fmt.Errorf(format, args...)}
}

// classify wraps an error returned by the OpenAI client.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if isQuotaMessage(apiErr.Type) || isQuotaMessage(apiErr.Message) || isQuotaMessage(fmt.Sprint(apiErr.Code)) {
			return &Error{Kind: KindQuota, Err: err}
		}
		return &Error{Kind: kindForStatus(apiErr.HTTPStatusCode), Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if isQuotaMessage(reqErr.Error()) {
			return &Error{Kind: KindQuota, Err: err}
		}
		return &Error{Kind: kindForStatus(reqErr.HTTPStatusCode), Err: err}
	}

	// Network failures, timeouts, and cancellation.
	return &Error{Kind: KindTransient, Err: err}
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindQuota
	case status == http.StatusRequestTimeout || status >= 500 || status == 0:
		return KindTransient
	default:
		return KindMalformed
	}
}

// isQuotaMessage matches the quota markers used by OpenAI and Gemini.
func isQuotaMessage(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "insufficient_quota") || strings.Contains(s, "resource_exhausted")
}
