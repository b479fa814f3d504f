package common

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure for retry policy and user messaging.
type Kind string

const (
	// KindUnreachable means no network connectivity was detected pre-flight.
	KindUnreachable Kind = "unreachable"
	// KindTimeout means a request exceeded its deadline.
	KindTimeout Kind = "timeout"
	// KindRateLimited means HTTP 429; handled internally via cooldown, only
	// surfaces once the cooldown budget is spent.
	KindRateLimited Kind = "rate_limited"
	// KindServerError means HTTP >= 500.
	KindServerError Kind = "server_error"
	// KindClientError means HTTP 4xx other than 429.
	KindClientError Kind = "client_error"
	// KindDecode means the body did not match the expected shape.
	KindDecode Kind = "decode_error"
	// KindCanceled means the transport reported a client-side cancellation
	// while the caller's context was still live.
	KindCanceled Kind = "canceled"
	// KindAPILogical means the envelope decoded fine but status != "OK".
	KindAPILogical Kind = "api_logical_error"
	// KindNotFound refines KindAPILogical for profile lookups on unknown handles.
	KindNotFound Kind = "not_found"
	KindUnknown  Kind = "unknown"
)

// Error is the typed failure every fetch path surfaces. Op names the logical
// operation ("user.info", "contest.list"), Message is optional detail.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error. Nil err is allowed.
func E(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf extracts the Kind from any error in the chain, KindUnknown otherwise.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether an attempt-level failure is worth retrying.
// Unreachable and API-logical failures are terminal for the whole call.
func Retryable(kind Kind) bool {
	switch kind {
	case KindUnreachable, KindAPILogical, KindNotFound:
		return false
	default:
		return true
	}
}

// UserMessage maps an error to the short, cause-differentiated text the UI
// shows next to its retry affordance. Raw technical strings never leak here.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindUnreachable:
		return "No internet connection. Please check your network and tap to retry."
	case KindTimeout:
		return "Request timed out. Codeforces servers might be slow. Tap to retry."
	case KindCanceled:
		return "Network request cancelled. Tap to retry or check your internet connection."
	case KindRateLimited:
		return "Too many requests right now. Please wait a moment and tap to retry."
	case KindServerError:
		return "Cannot connect to Codeforces. Server might be down. Tap to retry."
	case KindNotFound:
		return "User not found. Please check the handle."
	case KindAPILogical:
		return "Codeforces returned an error. Tap to retry."
	default:
		return "Unable to fetch data. Tap to retry or check later."
	}
}
