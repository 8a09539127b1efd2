// Package storage defines the contract a storage backend must satisfy to
// receive data from the engine's data handler, plus reference backends
// (in-RAM, sqlite, redis) in subpackages.
//
// The handler serializes all Put calls onto a single writer goroutine, so
// backends need not synchronize writes. GetData, GetMetadata, and Contains
// may be called concurrently with each other and with Put.
package storage

import (
	"errors"

	"github.com/c360/exengine/coords"
)

// ErrFinished is returned by Put after Finish has been called
var ErrFinished = errors.New("storage: dataset is finished")

// ErrNotFound is returned when no item exists at the given coordinates
var ErrNotFound = errors.New("storage: no item at coordinates")

// Backend is the capability set the data handler drives. Put may block
// (e.g. disk writes); once it returns, the item must be readable through
// GetData and GetMetadata.
type Backend interface {
	// Put persists one item
	Put(c coords.Coordinates, data []byte, metadata map[string]any) error
	// GetData reads back an item's payload
	GetData(c coords.Coordinates) ([]byte, error)
	// GetMetadata reads back an item's metadata
	GetMetadata(c coords.Coordinates) (map[string]any, error)
	// Contains reports whether an item exists at the coordinates
	Contains(c coords.Coordinates) (bool, error)
	// Finish marks the dataset complete; the backend becomes read-only
	Finish() error
	// Close releases resources. No reads or writes may follow.
	Close() error
}
