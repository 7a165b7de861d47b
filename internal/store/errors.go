package store

import (
	"errors"
	"strings"
)

// Common errors returned by store operations.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, store.ErrConflict) {
//	    // Refresh the version token and retry
//	}
var (
	// ErrConflict is returned when a write's expected version token no
	// longer matches the stored version.
	ErrConflict = errors.New("version token conflict")

	// ErrNotFound is returned when the document or partition does not
	// exist. An absent archive partition is normal and callers treat
	// this as an empty listing.
	ErrNotFound = errors.New("document not found")

	// ErrAuth is returned when the remote rejected the credentials.
	ErrAuth = errors.New("authentication failed")

	// ErrForbidden is returned when the credentials are valid but lack
	// permission for the operation.
	ErrForbidden = errors.New("permission denied")

	// ErrNetwork is returned for connectivity failures.
	ErrNetwork = errors.New("network failure")

	// ErrValidation is returned for an invalid storage key before any
	// remote call is made.
	ErrValidation = errors.New("invalid storage key")
)

// IsRetryable returns true if the error is worth retrying after refreshing
// the version token. Only conflicts qualify; everything else either needs
// user action or will fail again identically.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// Reason returns a short classification label for logging.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not-found"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "unknown"
	}
}

// Classify maps a foreign error onto the store taxonomy by inspecting its
// message. This exists only for adapter boundaries wrapping backends that
// report failures as flat text (the git CLI, HTTP client libraries); code
// above the adapters must dispatch on the sentinels, never on strings.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	// Already tagged.
	for _, sentinel := range []error{ErrConflict, ErrNotFound, ErrAuth, ErrForbidden, ErrNetwork, ErrValidation} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "conflict") || strings.Contains(msg, "does not match") || strings.Contains(msg, "stale"):
		return errors.Join(ErrConflict, err)
	case strings.Contains(msg, "not found") || strings.Contains(msg, "no such") || strings.Contains(msg, "404"):
		return errors.Join(ErrNotFound, err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "bad credentials"):
		return errors.Join(ErrAuth, err)
	case strings.Contains(msg, "403") || strings.Contains(msg, "forbidden") || strings.Contains(msg, "permission denied"):
		return errors.Join(ErrForbidden, err)
	case strings.Contains(msg, "connection") || strings.Contains(msg, "timeout") || strings.Contains(msg, "network") || strings.Contains(msg, "could not resolve"):
		return errors.Join(ErrNetwork, err)
	default:
		return err
	}
}
