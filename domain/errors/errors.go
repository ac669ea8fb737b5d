// Package errors provides the typed failures of the permission store.
// All error types support unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/permstore/domain/entities"
)

var (
	// ErrNoGrant means no token is stored for the resource. It is distinct
	// from a redemption failure: the resource was never granted.
	ErrNoGrant = stdErrors.New("no grant recorded for resource")

	// ErrClosed is returned by operations on a store after Close.
	ErrClosed = stdErrors.New("permission store is closed")

	// ErrAccessDenied means the platform redeemed the token but refused to
	// start access to the resource.
	ErrAccessDenied = stdErrors.New("access to resource was not started")

	// ErrResourceMismatch means a stored token redeemed to a different
	// resource than the one it is recorded under.
	ErrResourceMismatch = stdErrors.New("token belongs to a different resource")
)

// DetailedError is implemented by error types that can describe themselves
// as a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	if stdErrors.Is(err, ErrNoGrant) {
		return &entities.ErrorDetail{Message: err.Error(), Type: "no-grant"}
	}
	if stdErrors.Is(err, ErrClosed) {
		return &entities.ErrorDetail{Message: err.Error(), Type: "store", Code: "closed"}
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// MintError means the platform declined to issue a token.
type MintError struct {
	Err      error
	Resource entities.ResourceID
}

func (e *MintError) Error() string {
	return fmt.Sprintf("mint token for %s: %v", e.Resource, e.Err)
}

func (e *MintError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *MintError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "mint", Resource: e.Resource}
}

// RedeemError is a hard failure exchanging a stored token for access.
// The record stays in the table for a later retry.
type RedeemError struct {
	Err      error
	Resource entities.ResourceID
}

func (e *RedeemError) Error() string {
	return fmt.Sprintf("redeem token for %s: %v", e.Resource, e.Err)
}

func (e *RedeemError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *RedeemError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "redeem", Resource: e.Resource}
	switch {
	case stdErrors.Is(e.Err, ErrAccessDenied):
		detail.Code = "access_denied"
	case stdErrors.Is(e.Err, ErrResourceMismatch):
		detail.Code = "resource_mismatch"
	}
	return detail
}

// StaleError means the token redeemed but no longer refers to the resource
// it was minted for. Access is not started; re-granting fixes it.
type StaleError struct {
	Resource entities.ResourceID
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("grant for %s is stale", e.Resource)
}

// ToErrorDetail implements DetailedError.
func (e *StaleError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "stale", Resource: e.Resource}
}

// CorruptDataError means a persisted blob is not a valid table encoding.
type CorruptDataError struct {
	Err    error
	Reason string
}

func (e *CorruptDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt permission data: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("corrupt permission data: %s", e.Reason)
}

func (e *CorruptDataError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *CorruptDataError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "corrupt", Code: e.Reason}
}

// StoreUnavailableError means the durable file could not be read or written.
type StoreUnavailableError struct {
	Err       error
	Operation string // "read" or "write"
	Path      string
}

func (e *StoreUnavailableError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("permission store %s failed for %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("permission store %s failed: %v", e.Operation, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *StoreUnavailableError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "store",
		Code:    e.Operation,
		Details: map[string]any{"path": e.Path},
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}

// IsCorrupt reports whether err is a CorruptDataError.
func IsCorrupt(err error) bool {
	var ce *CorruptDataError
	return stdErrors.As(err, &ce)
}

// IsStale reports whether err is a StaleError.
func IsStale(err error) bool {
	var se *StaleError
	return stdErrors.As(err, &se)
}
