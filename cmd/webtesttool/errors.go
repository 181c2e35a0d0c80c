package main

import "fmt"

// configError reports unusable configuration as a single printable line.
// field is the dotted config path when the failure is tied to one setting,
// empty when the whole file could not be loaded.
type configError struct {
	field   string
	message string
}

func newConfigError(field, message string) *configError {
	return &configError{field: field, message: message}
}

func (e *configError) Error() string {
	if e.field == "" {
		return fmt.Sprintf("config error: %s", e.message)
	}
	return fmt.Sprintf("config error in %s: %s", e.field, e.message)
}

// commandError names the subcommand that hit a failure so top-level output
// reads "run command failed: ..." instead of a bare cause.
type commandError struct {
	command string
	err     error
}

func newCommandError(command string, err error) *commandError {
	return &commandError{command: command, err: err}
}

func (e *commandError) Error() string {
	return fmt.Sprintf("%s command failed: %v", e.command, e.err)
}

func (e *commandError) Unwrap() error {
	return e.err
}
