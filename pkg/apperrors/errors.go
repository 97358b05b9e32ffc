package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError indicates malformed input rejected before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidation creates a ValidationError for the given field
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConfigurationError indicates missing or invalid operator configuration,
// e.g. absent gateway credentials. Fatal for the attempted operation.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s misconfigured: %s", e.Component, e.Reason)
}

// NewConfiguration creates a ConfigurationError for the given component
func NewConfiguration(component, reason string) *ConfigurationError {
	return &ConfigurationError{Component: component, Reason: reason}
}

// NotFoundError indicates a referenced entity does not exist (or is inactive
// where activity is required).
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFound creates a NotFoundError for the given entity
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// PreconditionError indicates an operation attempted against an entity in the
// wrong state, e.g. executing a campaign whose template is not approved.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// NewPrecondition creates a PreconditionError with the given reason
func NewPrecondition(reason string) *PreconditionError {
	return &PreconditionError{Reason: reason}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConfiguration reports whether err is a ConfigurationError
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsPrecondition reports whether err is a PreconditionError
func IsPrecondition(err error) bool {
	var target *PreconditionError
	return errors.As(err, &target)
}
