package validate

import "fmt"

// ValidationError is a single configuration problem with its file location.
type ValidationError struct {
	File    string
	Line    int // 0 when the line is unknown
	Message string
}

// ErrorCollector accumulates errors and warnings across validation passes.
type ErrorCollector struct {
	errors   []ValidationError
	warnings []ValidationError
}

// NewErrorCollector creates an empty collector.
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{}
}

// Add records a validation error with a formatted message.
func (ec *ErrorCollector) Add(file string, line int, format string, args ...interface{}) {
	ec.errors = append(ec.errors, ValidationError{
		File:    file,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	})
}

// AddWarning records a validation warning with a formatted message.
func (ec *ErrorCollector) AddWarning(file string, line int, format string, args ...interface{}) {
	ec.warnings = append(ec.warnings, ValidationError{
		File:    file,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether any errors have been collected.
func (ec *ErrorCollector) HasErrors() bool {
	return len(ec.errors) > 0
}

// Errors returns all collected errors.
func (ec *ErrorCollector) Errors() []ValidationError {
	return ec.errors
}

// Warnings returns all collected warnings.
func (ec *ErrorCollector) Warnings() []ValidationError {
	return ec.warnings
}
