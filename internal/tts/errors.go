package tts

import (
	"context"
	"errors"
	"fmt"
)

// Common TTS errors
var (
	// ErrEmptyText indicates a job or request without speakable text
	ErrEmptyText = errors.New("text is required")

	// ErrUnknownProvider indicates an unsupported TTS_SERVICE value
	ErrUnknownProvider = errors.New("unknown TTS provider")

	// ErrMissingCredentials indicates the selected provider has no key
	ErrMissingCredentials = errors.New("missing provider credentials")

	// ErrNoSynthesizer indicates the pipeline was built without a provider
	ErrNoSynthesizer = errors.New("no synthesizer configured")

	// ErrNoPlayer indicates the pipeline was built without an output
	ErrNoPlayer = errors.New("no audio player configured")
)

// Kind classifies an Error.
type Kind string

// Error kinds. Input and config errors are raised at the boundaries, the
// rest are per-job failures that the queue logs and moves past.
const (
	KindInput     Kind = "input"
	KindSynthesis Kind = "synthesis"
	KindPlayback  Kind = "playback"
	KindConfig    Kind = "config"
	KindTimeout   Kind = "timeout"
	KindCanceled  Kind = "canceled"
)

// Error represents a TTS error with additional context.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]any
}

// NewError creates a new error of the given kind.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsFatal returns true if the error should stop the process. Only
// configuration errors are fatal; everything else is scoped to one job or
// one request.
func (e *Error) IsFatal() bool {
	return e.Kind == KindConfig
}

// KeyVals flattens the error context for structured logging.
func (e *Error) KeyVals() []any {
	kv := make([]any, 0, 2*len(e.Context))
	for k, v := range e.Context {
		kv = append(kv, k, v)
	}
	return kv
}

// InputError reports input rejected at a boundary.
func InputError(message string) *Error {
	return NewError(KindInput, message, nil)
}

// SynthesisError wraps a provider failure.
func SynthesisError(provider string, cause error) *Error {
	return NewError(KindSynthesis, "synthesis failed", cause).WithContext("provider", provider)
}

// PlaybackError wraps an output failure.
func PlaybackError(cause error) *Error {
	return NewError(KindPlayback, "playback failed", cause)
}

// ConfigError reports an invalid configuration.
func ConfigError(message string, cause error) *Error {
	return NewError(KindConfig, message, cause)
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// classify wraps err as kind unless it already is an *Error. Context
// expiry is reported as a timeout, cancellation as canceled.
func classify(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(KindTimeout, message+" timed out", err)
	case errors.Is(err, context.Canceled):
		return NewError(KindCanceled, message+" canceled", err)
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return NewError(kind, message+" failed", err)
}
