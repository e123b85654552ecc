package dbx

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func sqliteCode(err error) (int, bool) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		// extended result codes carry the primary code in the low byte
		return se.Code() & 0xff, true
	}
	return 0, false
}

// IsDiskFull reports whether err means the database hit its size limit
// (SQLITE_FULL), either the disk or the configured max_page_count.
func IsDiskFull(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok {
		return code == sqlite3.SQLITE_FULL
	}
	return strings.Contains(err.Error(), "database or disk is full")
}

// IsUnavailable reports whether err means the database file cannot be used
// at all: not openable, read-only, permission denied or not a database.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok {
		switch code {
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_PERM,
			sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_IOERR:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to open database file") ||
		strings.Contains(msg, "readonly database")
}
