package sheetwatch

import (
	"errors"
	"fmt"
)

// ErrStateConflict is reported when the persisted hash changed between
// LoadHash and SaveHash, which happens when two runs overlap.
var ErrStateConflict = errors.New("state was modified by another run")

// ConfigurationError is returned when required configuration is missing or invalid.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("configuration: %s is not set", e.Field)
	}
	return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// CredentialError is returned when the credential source cannot be turned
// into a service account credential.
type CredentialError struct {
	Form CredentialsForm
	Err  error
}

func (e *CredentialError) Error() string {
	if e.Form == CredentialsFormUnknown {
		return fmt.Sprintf("credentials: %v", e.Err)
	}
	return fmt.Sprintf("credentials (%s): %v", e.Form, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// AccessError is returned when the spreadsheet cannot be read.
type AccessError struct {
	SpreadsheetID string
	StatusCode    int
	Err           error
}

func (e *AccessError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("access spreadsheet %s: status %d: %v", e.SpreadsheetID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("access spreadsheet %s: %v", e.SpreadsheetID, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// StorageError is returned when the state record cannot be read or written.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("state %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NotificationError is returned by notifiers. It is never fatal for a run.
type NotificationError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *NotificationError) Error() string {
	if e.StatusCode != 0 && e.Err != nil {
		return fmt.Sprintf("notification: unexpected status %d: %s: %v", e.StatusCode, e.Body, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("notification: %v", e.Err)
	}
	return fmt.Sprintf("notification: unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
