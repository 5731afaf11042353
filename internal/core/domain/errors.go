package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailInUse         = errors.New("email already in use")
	ErrWeakPassword       = errors.New("password is too weak")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrMissingIndex       = errors.New("query requires an index that has not been created")
	ErrNotFound           = errors.New("not found")
	ErrUnavailable        = errors.New("service unavailable")
	ErrSubmissionInFlight = errors.New("submission already in progress")
	ErrInvalidFlowOutput  = errors.New("flow returned output that does not match its schema")
	ErrFlowDisabled       = errors.New("ai flows are not configured")
)

// ValidationError is raised before any network call; Field names the first failing input.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigError lists every missing required connection parameter.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}
