package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors returned by planning operations.
var (
	ErrSKUNotFound        = errors.New("sku not found")
	ErrApprovalNotFound   = errors.New("approval request not found")
	ErrInvalidTransition  = errors.New("invalid approval status transition")
	ErrEmptyApproval      = errors.New("approval request has no items")
	ErrNegativeQuantity   = errors.New("quantity must not be negative")
	ErrBundleNotAvailable = errors.New("planning bundle not loaded")
)

// ValidationError describes an invalid field.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors aggregates validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, ve := range v {
		if ve.Field != "" {
			parts[i] = fmt.Sprintf("%s: %s", ve.Field, ve.Message)
			continue
		}
		parts[i] = ve.Message
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, ", "))
}

// Has reports whether field has a validation error.
func (v ValidationErrors) Has(field string) bool {
	for _, ve := range v {
		if ve.Field == field {
			return true
		}
	}
	return false
}

// AppendIf adds the error when cond is true.
func (v ValidationErrors) AppendIf(cond bool, field, message string) ValidationErrors {
	if cond {
		v = append(v, ValidationError{Field: field, Message: message})
	}
	return v
}
