// Package app wires connections, bindings and rooms together. It is
// transport-agnostic: adapters hand it a Conn and typed events.
package app

import "errors"

// SessionID identifies one transport connection for its lifetime.
type SessionID string

var (
	// ErrWrongPassword is reported to the joining caller only; nothing is
	// broadcast and no room state changes.
	ErrWrongPassword = errors.New("incorrect password")

	// ErrUnknownSession means the connection was never registered.
	ErrUnknownSession = errors.New("unknown session")
)

// Conn abstracts the outbound half of a transport connection.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	TrySend(data []byte) error
	Close()
}
