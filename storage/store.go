// Package storage provides named-document sinks for the ledger state and reports.
package storage

import "errors"

// ErrNotExist is returned by Read when no document has the requested name.
var ErrNotExist = errors.New("storage: document does not exist")

// Sink accepts whole documents. Reports only need this much.
type Sink interface {
	Write(name string, data []byte) error
}

// Store is a Sink that can also answer whether a document exists and read it back.
type Store interface {
	Sink
	Exists(name string) (bool, error)
	Read(name string) ([]byte, error)
	// Location describes where name lives, for user-facing messages.
	Location(name string) string
}
