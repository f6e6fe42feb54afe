/*
errors.go - Typed input errors shared by the policy evaluators

PURPOSE:
  Rule DENIALS are violations, not errors - denial is a normal outcome
  the caller branches on. Errors here are reserved for malformed
  evaluation input: a missing policy type, a nil snapshot where one is
  required. Those fail fast instead of silently defaulting.

USAGE:
  if errors.Is(err, policy.ErrMissingInput) { ... 400 Bad Request ... }
*/
package policy

import (
	"errors"
	"fmt"
)

// ErrMissingInput is returned when a required evaluation parameter is
// absent. Use with errors.Is().
var ErrMissingInput = errors.New("missing required evaluation input")

// MissingInputError names the absent parameter.
type MissingInputError struct {
	Field string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required evaluation input: %s", e.Field)
}

func (e *MissingInputError) Unwrap() error { return ErrMissingInput }

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingInput)
}
