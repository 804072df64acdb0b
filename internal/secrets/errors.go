package secrets

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by every operation on a Manager that
	// has not been bound to an identity.
	ErrNotInitialized = errors.New("secrets: manager not initialized")

	// ErrSecretNotFound is returned when the named secret is not present
	// in the store.
	ErrSecretNotFound = errors.New("secrets: secret not found")

	// ErrPermissionDenied is returned when the user declined the release
	// of a secret, or dismissed the permission prompt.
	ErrPermissionDenied = errors.New("secrets: permission denied by user")

	// ErrPermissionRequired is returned when a grant is needed but no
	// live confirmation channel was supplied. This is a caller bug, not
	// a user decision.
	ErrPermissionRequired = errors.New("secrets: interactive permission required but no elicitation channel available")
)

// StorageError reports a failure of the underlying credential vault for
// one operation on one secret. The vault may be locked, unavailable, or
// corrupted; no retry is attempted here.
type StorageError struct {
	Op   string // "store", "retrieve", "delete", "list", "clear"
	Name string // Secret name, empty for index-level operations.
	Err  error
}

func (e *StorageError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("secrets: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("secrets: %s %q failed: %v", e.Op, e.Name, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
