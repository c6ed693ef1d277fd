package repository

import (
	"errors"
	"strings"
)

// errNonRetryable marks errors the busy-retry loop must not repeat
var errNonRetryable = errors.New("non-retryable")

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
