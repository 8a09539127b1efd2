// Package notification provides the asynchronous status values published
// by the execution engine and its collaborators, plus the subscription bus
// that fans them out to external listeners.
//
// Notifications are designed to be numerous and lightweight. Payloads
// should be small: coordinates, an error, a device property name - not
// acquired data itself.
package notification

import (
	"encoding/json"
	"time"

	"github.com/c360/exengine/coords"
)

// Category classifies a notification by its origin
type Category int

const (
	// CategoryEvent covers execution lifecycle updates
	CategoryEvent Category = iota
	// CategoryData covers data produced by data-producing events
	CategoryData
	// CategoryStorage covers updates from storage backends
	CategoryStorage
	// CategoryDevice covers updates from device objects
	CategoryDevice
)

// String returns the string representation of a Category
func (c Category) String() string {
	switch c {
	case CategoryEvent:
		return "event"
	case CategoryData:
		return "data"
	case CategoryStorage:
		return "storage"
	case CategoryDevice:
		return "device"
	default:
		return "unknown"
	}
}

// Built-in notification kinds emitted by the engine core. Event catalogs
// may define more; kinds are matched by exact string comparison.
const (
	KindEventExecuted = "EventExecuted"
	KindDataStored    = "DataStored"
	KindStorageFailed = "StorageFailed"
)

// Notification is an immutable broadcast message. Create one with New and
// treat it as read-only afterwards.
type Notification struct {
	Category    Category
	Kind        string
	Description string
	Payload     any
	Timestamp   time.Time
}

// New creates a notification stamped with the current time
func New(category Category, kind, description string, payload any) Notification {
	return Notification{
		Category:    category,
		Kind:        kind,
		Description: description,
		Payload:     payload,
		Timestamp:   time.Now(),
	}
}

// EventExecuted creates the terminal notification published exactly once
// per executed work item. The payload is the execution error, or nil on
// success.
func EventExecuted(err error) Notification {
	return New(CategoryEvent, KindEventExecuted,
		"event has finished executing", err)
}

// DataStored creates the notification published after a data item has been
// handed off to the storage backend.
func DataStored(c coords.Coordinates) Notification {
	return New(CategoryData, KindDataStored,
		"data has been persisted by the storage backend", c)
}

// StorageFailed creates the notification published when the storage
// backend rejects a put.
func StorageFailed(err error) Notification {
	return New(CategoryStorage, KindStorageFailed,
		"storage backend failed to persist data", err)
}

// wireNotification is the observability export encoding
type wireNotification struct {
	TimestampNS uint64          `json:"timestamp_ns"`
	Category    string          `json:"category"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Payload     json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the notification in the wire format used by the
// gateway and the NATS exporter. Error payloads are rendered as their
// message strings; unmarshalable payloads degrade to null.
func (n Notification) MarshalJSON() ([]byte, error) {
	payload := n.Payload
	if err, ok := payload.(error); ok {
		payload = err.Error()
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("null")
	}
	return json.Marshal(wireNotification{
		TimestampNS: uint64(n.Timestamp.UnixNano()),
		Category:    n.Category.String(),
		Kind:        n.Kind,
		Description: n.Description,
		Payload:     raw,
	})
}
