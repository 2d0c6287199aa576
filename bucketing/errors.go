package bucketing

import (
	"errors"
	"fmt"
)

var ErrMissingVariation = errors.New("config missing variation")
var ErrMissingAudience = errors.New("config missing audience")
var ErrInvalidTrafficAllocation = errors.New("invalid traffic allocation")
var ErrInvalidVariableType = errors.New("invalid variable type")
var ErrDuplicateKey = errors.New("duplicate key")
var ErrEventNotFound = errors.New("event key not found in config")

// ParseError is returned when a datafile cannot be turned into a Config. It is
// only produced at load time.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse datafile: %s: %v", e.Reason, e.Err)
	}
	return "failed to parse datafile: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(err error, format string, args ...interface{}) *ParseError {
	return &ParseError{Reason: fmt.Sprintf(format, args...), Err: err}
}

// FlagNotFoundError is returned by Decide for a key the Config does not contain.
type FlagNotFoundError struct {
	FlagKey string
}

func (e *FlagNotFoundError) Error() string {
	return fmt.Sprintf("flag not found: %q", e.FlagKey)
}
