package db

import "errors"

// ErrKeyNotFound is returned by KVStore.Get for missing keys.
var ErrKeyNotFound = errors.New("db: key not found")

// Command names used in Error.Op.
const (
	OpPing   = "PING"
	OpSearch = "FT.SEARCH"
	OpGet    = "GET"
	OpSet    = "SET"
)

// Error attaches the failed command to a store error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
