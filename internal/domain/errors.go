package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindConfiguration ErrorKind = "CONFIGURATION_ERROR"
	KindNotFound      ErrorKind = "NOT_FOUND_ERROR"
	KindConflict      ErrorKind = "CONFLICT_ERROR"
	KindIntegrity     ErrorKind = "INTEGRITY_ERROR"
	KindIO            ErrorKind = "IO_ERROR"
	KindBackup        ErrorKind = "BACKUP_ERROR"
)

// Error carries a kind so callers can match failures with errors.Is against the
// sentinels below regardless of how deeply they are wrapped.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Message == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrIntegrity     = &Error{Kind: KindIntegrity}
	ErrIO            = &Error{Kind: KindIO}
	ErrBackup        = &Error{Kind: KindBackup}

	ErrRestoreInProgress = errors.New("restore already in progress")
	ErrRestoreCancelled  = errors.New("restore cancelled by confirmation")
)

func NewConfigurationError(message string, cause error) error {
	return &Error{Kind: KindConfiguration, Message: message, Err: cause}
}

func NewNotFoundError(message string, cause error) error {
	return &Error{Kind: KindNotFound, Message: message, Err: cause}
}

func NewConflictError(message string, cause error) error {
	return &Error{Kind: KindConflict, Message: message, Err: cause}
}

func NewIntegrityError(message string, cause error) error {
	return &Error{Kind: KindIntegrity, Message: message, Err: cause}
}

func NewIOError(message string, cause error) error {
	return &Error{Kind: KindIO, Message: message, Err: cause}
}

func NewBackupError(message string, cause error) error {
	return &Error{Kind: KindBackup, Message: message, Err: cause}
}
