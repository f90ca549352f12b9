package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain operations
var (
	// ErrNotConfigured indicates the API endpoint or credentials are missing
	ErrNotConfigured = errors.New("catalog API is not configured")

	// ErrItemNotFound indicates the requested catalog item does not exist
	ErrItemNotFound = errors.New("catalog item not found")

	// ErrDocumentNotFound indicates no PDF document is associated with an item
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidPayload indicates a response body was not the expected JSON
	ErrInvalidPayload = errors.New("invalid JSON payload")
)

// ConfigError is a startup misconfiguration. It is never retried.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s is not set", e.Field)
}

// Is matches ErrNotConfigured
func (e *ConfigError) Is(target error) bool {
	return target == ErrNotConfigured
}

// TransportError is the failure of one fetch attempt
type TransportError struct {
	Strategy   string // Which chain step failed ("direct", "allorigins", ...)
	URL        string // Redacted target URL
	StatusCode int    // HTTP status, 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Strategy)
	b.WriteString(": ")
	b.WriteString(e.URL)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsNotFound reports whether the server answered 404
func (e *TransportError) IsNotFound() bool {
	return e.StatusCode == 404
}

// ExhaustedError is returned when every step of the fetch chain failed
type ExhaustedError struct {
	URL      string
	Attempts []error
}

func (e *ExhaustedError) Error() string {
	if cause := e.Cause(); cause != nil {
		return fmt.Sprintf("all %d fetch attempts failed: %v", len(e.Attempts), cause)
	}
	return fmt.Sprintf("all fetch attempts failed for %s", e.URL)
}

// Unwrap exposes every attempt to errors.Is and errors.As
func (e *ExhaustedError) Unwrap() []error { return e.Attempts }

// Cause returns the most specific attempt error: the first attempt that got an
// HTTP status from a server, otherwise the last attempt.
func (e *ExhaustedError) Cause() error {
	for _, err := range e.Attempts {
		var te *TransportError
		if errors.As(err, &te) && te.StatusCode > 0 {
			return err
		}
	}
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1]
}

// NotFoundError is a domain-level absence, distinct from transport failures
type NotFoundError struct {
	Kind string // "item", "document"
	ID   int
}

func (e *NotFoundError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s not found for #%d", e.Kind, e.ID)
	}
	return e.Kind + " not found"
}

// Is matches the sentinel for the error's kind
func (e *NotFoundError) Is(target error) bool {
	switch e.Kind {
	case "document":
		return target == ErrDocumentNotFound
	case "item":
		return target == ErrItemNotFound
	}
	return false
}

// IsTransport reports whether err came from the network layer
func IsTransport(err error) bool {
	var te *TransportError
	var ee *ExhaustedError
	return errors.As(err, &te) || errors.As(err, &ee)
}
