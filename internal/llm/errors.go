package llm

import (
	"fmt"
	"strings"
)

// TransportReason classifies a failed round-trip so the caller can react
// differently (re-prompt for a credential vs. advise waiting).
type TransportReason string

const (
	ReasonUnauthorized    TransportReason = "unauthorized"
	ReasonPayloadTooLarge TransportReason = "payload_too_large"
	ReasonRateLimited     TransportReason = "rate_limited"
	ReasonNetwork         TransportReason = "network"
)

// TransportError wraps a provider SDK error with a classified reason and,
// when known, the HTTP status the endpoint returned.
type TransportError struct {
	Reason TransportReason
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("extraction endpoint error (%s, status %d): %v", e.Reason, e.Status, e.Err)
	}
	return fmt.Sprintf("extraction endpoint error (%s): %v", e.Reason, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func transportFromStatus(status int, err error) *TransportError {
	reason := ReasonNetwork
	switch status {
	case 401, 403:
		reason = ReasonUnauthorized
	case 413:
		reason = ReasonPayloadTooLarge
	case 429:
		reason = ReasonRateLimited
	}
	if reason == ReasonNetwork {
		reason = reasonFromMessage(err)
	}
	return &TransportError{Reason: reason, Status: status, Err: err}
}

// reasonFromMessage is the fallback for SDK errors that carry no status
// code. Providers are not consistent about error shapes, so message
// sniffing is the last resort.
func reasonFromMessage(err error) TransportReason {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "unauthenticated") || strings.Contains(msg, "permission"):
		return ReasonUnauthorized
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "overloaded"):
		return ReasonRateLimited
	case strings.Contains(msg, "too large") || strings.Contains(msg, "payload size"):
		return ReasonPayloadTooLarge
	default:
		return ReasonNetwork
	}
}
