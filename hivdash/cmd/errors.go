package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/hivdash/hivdash/charts"
	"github.com/arthur-debert/hivdash/hivdash/entry"
	imports "github.com/arthur-debert/hivdash/hivdash/import"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

// CLIError represents a user-friendly CLI error with context and suggestions
type CLIError struct {
	Operation   string   // The operation that failed (e.g., "add", "import")
	Cause       string   // The underlying cause (e.g., "record not found")
	Details     string   // Additional technical details
	Suggestions []string // Helpful suggestions for the user
	Underlying  error    // Original error for debugging
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		msg.WriteString(fmt.Sprintf("Failed to %s", e.Operation))
	} else {
		msg.WriteString("Operation failed")
	}

	if e.Cause != "" {
		msg.WriteString(fmt.Sprintf(": %s", e.Cause))
	}

	if e.Details != "" {
		msg.WriteString(fmt.Sprintf(" (%s)", e.Details))
	}

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return msg.String()
}

// Unwrap returns the underlying error for error chain compatibility
func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewValidationError creates an error for invalid flag or argument values
func NewValidationError(operation, field, value string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("invalid %s: %q", field, value),
		Suggestions: suggestions,
	}
}

// NewNotFoundError creates an error for missing records
func NewNotFoundError(operation, id string, underlying error) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("record with ID %q not found", id),
		Suggestions: []string{CommonSuggestions.CheckID},
		Underlying:  underlying,
	}
}

// NewConfigError creates an error for configuration issues
func NewConfigError(operation, issue string, underlying error) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("configuration error: %s", issue),
		Suggestions: []string{CommonSuggestions.CheckStore, CommonSuggestions.CheckConfig},
		Underlying:  underlying,
	}
}

// NewStoreError creates an error for store-related issues
func NewStoreError(operation string, underlying error, suggestions ...string) *CLIError {
	cause := "store operation failed"
	details := ""

	if underlying != nil {
		details = underlying.Error()

		errStr := strings.ToLower(underlying.Error())
		switch {
		case strings.Contains(errStr, "no such file"):
			cause = "store file not found"
		case strings.Contains(errStr, "permission denied"):
			cause = "insufficient permissions to access the store"
		case strings.Contains(errStr, "database is locked"), strings.Contains(errStr, "acquire lock"):
			cause = "store is currently locked by another process"
		}
	}

	return &CLIError{
		Operation:   operation,
		Cause:       cause,
		Details:     details,
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// WrapError wraps an existing error with CLI-friendly context
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}

	var verr *entry.ValidationError
	switch {
	case errors.As(err, &verr):
		return &CLIError{
			Operation:   operation,
			Cause:       verr.Error(),
			Suggestions: []string{"Pass every field: --entity, --code, --year, --deaths and --incidence"},
			Underlying:  err,
		}
	case errors.Is(err, imports.ErrMalformed), errors.Is(err, imports.ErrEmpty):
		return &CLIError{
			Operation:   operation,
			Cause:       "the CSV file could not be read",
			Details:     err.Error(),
			Suggestions: []string{CommonSuggestions.CheckCSV},
			Underlying:  err,
		}
	case errors.Is(err, charts.ErrNoData):
		return &CLIError{
			Operation:   operation,
			Cause:       "no data to draw",
			Suggestions: []string{"Import records first, or pick another --year"},
			Underlying:  err,
		}
	case errors.Is(err, types.ErrNotFound):
		return &CLIError{
			Operation:   operation,
			Cause:       "record not found",
			Details:     err.Error(),
			Suggestions: []string{CommonSuggestions.CheckID},
			Underlying:  err,
		}
	}

	return NewStoreError(operation, err, CommonSuggestions.CheckStore)
}

// Common error messages and suggestions
var (
	CommonSuggestions = struct {
		CheckStore  string
		CheckID     string
		CheckConfig string
		CheckCSV    string
		RunHelp     string
	}{
		CheckStore:  "Verify --store points to a valid .json or .db file",
		CheckID:     "Verify the record ID exists (try 'list' command first)",
		CheckConfig: "Check your configuration file or HIVDASH_* environment variables",
		CheckCSV:    "The header must be Entity,Code,Year,Deaths,Incidence[,Prevalence]",
		RunHelp:     "Run command with --help for usage information",
	}
)
