package entities

import "fmt"

// ErrorDetail provides structured error information for CLI output.
// Error Types: "mint", "redeem", "stale", "corrupt", "store", "no-grant", "internal"
type ErrorDetail struct {
	// Details contains additional error context.
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`

	// Message is a human-readable error description.
	Message string `json:"message" yaml:"message"`

	// Type categorizes the error.
	Type string `json:"type" yaml:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty" yaml:"code,omitempty"`

	// Resource names the resource the error concerns, if any.
	Resource ResourceID `json:"resource,omitempty" yaml:"resource,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	return msg
}

// NewErrorDetail creates a new ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{
		Type:    errorType,
		Message: message,
	}
}

// WithDetails attaches details and returns e.
func (e *ErrorDetail) WithDetails(details map[string]any) *ErrorDetail {
	e.Details = details
	return e
}

// WithCode attaches a code and returns e.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}
