// Package apperr classifies failures from the backend, the speech proxy and
// local configuration so every caller reports them the same way.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrTransport       = errors.New("transport error")
	ErrUpstream        = errors.New("upstream error")
	ErrAuthExpired     = errors.New("session expired")
	ErrMissingIdentity = errors.New("article has no id or url")
	ErrNoVoice         = errors.New("no voice selected")
	ErrNothingToRead   = errors.New("nothing to read")
	ErrCredentials     = errors.New("invalid credentials")
	ErrInvalidInput    = errors.New("invalid input")
)

// Kind is the coarse category used to pick a user-facing message.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindTransport
	KindUpstream
	KindAuthExpired
	KindMissingIdentity
	KindNoVoice
	KindNothingToRead
	KindCredentials
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindUpstream:
		return "upstream"
	case KindAuthExpired:
		return "auth_expired"
	case KindMissingIdentity:
		return "missing_identity"
	case KindNoVoice:
		return "no_voice"
	case KindNothingToRead:
		return "nothing_to_read"
	case KindCredentials:
		return "credentials"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// StatusError is a non-2xx response from the backend or the speech proxy.
// A 401 unwraps to ErrAuthExpired, or to ErrCredentials for a login attempt.
// Anything else unwraps to ErrUpstream.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
	Detail     string
}

func (e *StatusError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" failed with status ")
	} else {
		b.WriteString("request failed with status ")
	}
	fmt.Fprintf(&b, "%d", e.StatusCode)
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if detail := strings.TrimSpace(e.Detail); detail != "" {
		b.WriteString(" (")
		b.WriteString(detail)
		b.WriteString(")")
	}
	return b.String()
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		if e.Op == OpLogin {
			return ErrCredentials
		}
		return ErrAuthExpired
	}
	return ErrUpstream
}

// Ops with their own user-facing wording.
const (
	OpSynthesize     = "synthesize"
	OpLogin          = "login"
	OpSignup         = "signup"
	OpChangePassword = "change password"
)

// IsSynthesisError reports whether err carries a failed synthesis response.
func IsSynthesisError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Op == OpSynthesize
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Transport tags a network failure for op.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}

// Configuration tags a missing or invalid setting.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Invalid tags input rejected before any request is made.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Classify maps err to its Kind. Auth expiry wins over the generic upstream
// category because StatusError unwraps to exactly one of them.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrAuthExpired):
		return KindAuthExpired
	case errors.Is(err, ErrCredentials):
		return KindCredentials
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrMissingIdentity):
		return KindMissingIdentity
	case errors.Is(err, ErrNoVoice):
		return KindNoVoice
	case errors.Is(err, ErrNothingToRead):
		return KindNothingToRead
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	default:
		return KindUnknown
	}
}

// UserMessage renders err as the one-line notice shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch Classify(err) {
	case KindAuthExpired:
		return "Your session has expired. Please log in again."
	case KindCredentials:
		return "Login failed: " + reason(err, "invalid username or password")
	case KindInvalidInput:
		return "Invalid input: " + strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
	case KindConfiguration:
		return "Configuration problem: " + err.Error()
	case KindMissingIdentity:
		return "This article cannot be bookmarked: it has no id or URL."
	case KindNoVoice:
		return "No voice selected. Pick one with `readaloud voices select`."
	case KindNothingToRead:
		return "Could not load any news to read."
	case KindTransport:
		return "Network error: " + err.Error()
	case KindUpstream:
		switch op(err) {
		case OpSynthesize:
			return "Could not load audio: " + err.Error()
		case OpLogin:
			return "Login failed: " + reason(err, "unknown error")
		case OpSignup:
			return "Sign-up failed: " + reason(err, "unknown error")
		case OpChangePassword:
			return "Could not change password: " + reason(err, "unknown error")
		}
		return "Server error: " + err.Error()
	default:
		return err.Error()
	}
}

func op(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Op
	}
	return ""
}

// reason is the server's own explanation, or fallback.
func reason(err error, fallback string) string {
	var se *StatusError
	if errors.As(err, &se) {
		if msg := strings.TrimSpace(se.Message); msg != "" {
			return msg
		}
		if detail := strings.TrimSpace(se.Detail); detail != "" {
			return detail
		}
	}
	return fallback
}
