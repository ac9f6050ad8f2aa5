package config

import (
	"errors"
	"fmt"
)

// ErrHelpRequested is returned when --help or --version was given. The
// requested text has already been written to the usage writer.
var ErrHelpRequested = errors.New("help requested")

// UnknownOptionError reports a token or config file key that matches no option.
type UnknownOptionError struct {
	Name   string
	Source string
}

func (e *UnknownOptionError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("unknown option %q in %s", e.Name, e.Source)
	}
	return fmt.Sprintf("unknown option %q", e.Name)
}

// MissingRequiredOptionError reports a required option that no source supplied.
type MissingRequiredOptionError struct {
	Name string
}

func (e *MissingRequiredOptionError) Error() string {
	return fmt.Sprintf("required option --%s not provided", e.Name)
}

// InvalidValueError reports a value that does not satisfy its option's type.
type InvalidValueError struct {
	Name     string
	Value    string
	Expected string
	Source   string
	Err      error
}

func (e *InvalidValueError) Error() string {
	msg := fmt.Sprintf("invalid value %q for --%s", e.Value, e.Name)
	if e.Source != "" {
		msg += " from " + e.Source
	}
	msg += ", expected " + e.Expected
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidValueError) Unwrap() error {
	return e.Err
}
