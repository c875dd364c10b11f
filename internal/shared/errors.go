package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// API and provider errors
	ErrAPIRequest      = fmt.Errorf("API request failed")
	ErrNotFound        = fmt.Errorf("not found")
	ErrNoResults       = fmt.Errorf("no results")
	ErrUnsupported     = fmt.Errorf("operation not supported by provider")
	ErrUnknownProvider = fmt.Errorf("unknown provider")
	ErrQueueClosed     = fmt.Errorf("request queue closed")

	// Entity lifecycle errors
	ErrAlreadyExists = fmt.Errorf("already exists")
	ErrCancelled     = fmt.Errorf("cancelled")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// Entity kinds carried by [EntityError].
const (
	KindChannel = "channel"
	KindUser    = "user"
)

// EntityError is a failure scoped to one channel or user so a presentation layer can
// render it without inspecting provider internals.
//
// Name is empty for failures that are not about a specific entity (e.g. a search with no results).
type EntityError struct {
	Op       string // operation that failed, e.g. "add", "refresh"
	Kind     string // [KindChannel] or [KindUser]
	Name     string // login of the entity
	Provider string // provider type, e.g. "twitch"
	Err      error
}

func (e *EntityError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s %s on %s: %v", e.Op, e.Kind, e.Provider, e.Err)
	}
	return fmt.Sprintf("%s %s %q on %s: %v", e.Op, e.Kind, e.Name, e.Provider, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// NewEntityError wraps err with entity context. Returns nil when err is nil and
// leaves an existing [EntityError] untouched.
func NewEntityError(op, kind, name, provider string, err error) error {
	if err == nil {
		return nil
	}
	var existing *EntityError
	if errors.As(err, &existing) {
		return err
	}
	return &EntityError{Op: op, Kind: kind, Name: name, Provider: provider, Err: err}
}
