package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoteNotFound         = errors.New("note not found")
	ErrAssetNotFound        = errors.New("asset not found")
	ErrUnknownOwner         = errors.New("no key pair for owner")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrTooManyNotesRequired = errors.New("too many notes required")
	ErrDecryption           = errors.New("failed to decrypt value")
	ErrConsistency          = errors.New("immutable note field mismatch")
	ErrInvalidEvent         = errors.New("invalid sync event")
)

// ConsistencyError is returned when an event tries to change a field of a
// note that is immutable after creation.
type ConsistencyError struct {
	Hash  string
	Field string
	Have  string
	Got   string
}

func (e ConsistencyError) Error() string {
	return fmt.Sprintf(
		"note %s: %s is immutable (have %s, got %s)", e.Hash, e.Field, e.Have, e.Got,
	)
}

func (e ConsistencyError) Unwrap() error {
	return ErrConsistency
}

type DecryptionError struct {
	Key string
	Err error
}

func (e DecryptionError) Error() string {
	return fmt.Sprintf("%s for key %s: %s", ErrDecryption, e.Key, e.Err)
}

func (e DecryptionError) Unwrap() []error {
	return []error{ErrDecryption, e.Err}
}

type InsufficientFundsError struct {
	Available uint64
	Target    uint64
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf(
		"%s: available %d to cover %d", ErrInsufficientFunds, e.Available, e.Target,
	)
}

func (e InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

type TooManyNotesError struct {
	MaxNotes int
	Target   uint64
}

func (e TooManyNotesError) Error() string {
	return fmt.Sprintf(
		"%s: cannot cover %d with at most %d notes", ErrTooManyNotesRequired, e.Target, e.MaxNotes,
	)
}

func (e TooManyNotesError) Unwrap() error {
	return ErrTooManyNotesRequired
}
