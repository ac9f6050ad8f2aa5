package launcher

import "fmt"

// ExitError lets a runtime choose the process exit status for its failure.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the requested exit status.
func (e *ExitError) ExitCode() int {
	return e.Code
}
