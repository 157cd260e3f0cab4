// Package session provides durable per-session message logs: a JSONL
// file store and a SQLite-backed store with the same contract.
package session

import (
	"fmt"

	"github.com/soyeahso/clowder/internal/domain"
)

// ResetPolicy controls automatic session log rotation.
type ResetPolicy int

const (
	// ResetNever keeps logs until explicitly cleared.
	ResetNever ResetPolicy = iota
	// ResetDaily archives a log once its last activity falls on a
	// previous calendar day.
	ResetDaily
)

// Store is a durable per-key message log. Implementations guarantee
// per-key ordering for a single writer; serializing concurrent writers
// on the same key is the caller's job.
type Store interface {
	// Append adds messages to the end of a key's log, creating it if needed.
	Append(key domain.SessionKey, msgs ...domain.Message) error

	// Read returns the full log for a key, oldest first. A missing key
	// yields an empty log, not an error.
	Read(key domain.SessionKey) ([]domain.Message, error)

	// ReplacePrefix atomically replaces the first count messages with a
	// single summary message. Readers never observe a partial log.
	ReplacePrefix(key domain.SessionKey, count int, summary domain.Message) error

	// ResetIfDue archives the log when the policy says its time is up.
	// Returns true if a reset happened.
	ResetIfDue(key domain.SessionKey, policy ResetPolicy) (bool, error)

	// Keys lists all live session keys.
	Keys() ([]domain.SessionKey, error)
}

// StoreError wraps a storage failure with the operation and key involved.
type StoreError struct {
	Op  string
	Key domain.SessionKey
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("session %s %s: %v", e.Op, e.Key.String(), e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, key domain.SessionKey, err error) *StoreError {
	return &StoreError{Op: op, Key: key, Err: err}
}
