package placement

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput matches any *InvalidInputError
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfiguration matches any *ConfigurationError
	ErrConfiguration = errors.New("invalid configuration")
	// ErrAggregation matches any *AggregationError
	ErrAggregation = errors.New("aggregation failed")
)

// InvalidInputError rejects a whole batch. Index is -1 for batch-level problems.
type InvalidInputError struct {
	Index  int
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid input: point %d: %s %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConfigurationError is returned before any enumeration starts
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// AggregationError is returned when results cannot be averaged
type AggregationError struct {
	Zone   string
	Reason string
}

func (e *AggregationError) Error() string {
	if e.Zone != "" {
		return fmt.Sprintf("cannot aggregate results: %s: %s", e.Zone, e.Reason)
	}
	return fmt.Sprintf("cannot aggregate results: %s", e.Reason)
}

func (e *AggregationError) Is(target error) bool {
	return target == ErrAggregation
}
