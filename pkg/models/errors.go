package models

import (
	"errors"
	"fmt"
)

// InputError indicates the caller supplied an unusable URL or configuration
type InputError struct {
	Msg string
}

func (e *InputError) Error() string {
	return e.Msg
}

// NewInputError creates an input validation error
func NewInputError(format string, args ...any) *InputError {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// GatewayError indicates the parser API request itself failed
type GatewayError struct {
	Msg     string
	Status  int
	Timeout bool
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Msg, e.Status)
	}
	return e.Msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NormalizationError indicates the parser response could not be mapped to
// a media record
type NormalizationError struct {
	Msg string
}

func (e *NormalizationError) Error() string {
	return e.Msg
}

// NewNormalizationError creates a normalization error
func NewNormalizationError(format string, args ...any) *NormalizationError {
	return &NormalizationError{Msg: fmt.Sprintf(format, args...)}
}

// UploadError indicates a media download or WebDAV transfer failure.
// Status carries the upstream HTTP status when one was received; Attempts
// records how many tries the retry loop consumed.
type UploadError struct {
	Msg      string
	Status   int
	Attempts int
	Err      error
}

func (e *UploadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Msg, e.Status)
	}
	return e.Msg
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err is an InputError
func IsInputError(err error) bool {
	var target *InputError
	return errors.As(err, &target)
}

// IsGatewayError reports whether err is a GatewayError
func IsGatewayError(err error) bool {
	var target *GatewayError
	return errors.As(err, &target)
}

// IsNormalizationError reports whether err is a NormalizationError
func IsNormalizationError(err error) bool {
	var target *NormalizationError
	return errors.As(err, &target)
}

// IsUploadError reports whether err is an UploadError
func IsUploadError(err error) bool {
	var target *UploadError
	return errors.As(err, &target)
}
