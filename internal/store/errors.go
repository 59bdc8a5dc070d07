package store

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrDuplicate is returned when an insert hits a unique or primary key constraint.
	ErrDuplicate = errors.New("store: duplicate record")
	// ErrStale is returned when a conditional update matched no row because another writer got there first.
	ErrStale = errors.New("store: stale update")
)

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func mapInsertError(err error) error {
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
