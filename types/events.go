package types

// EventType classifies an object store notification.
type EventType string

// Event type constants.
const (
	// EventPut covers object creation: uploads, copies, multipart completion.
	EventPut EventType = "put"
	// EventDelete covers object removal.
	EventDelete EventType = "delete"
)

// ObjectEvent is a normalized object store notification: something happened
// to the object identified by ID.
type ObjectEvent struct {
	// ID identifies the object the event refers to.
	ID ObjectID
	// Type says whether the object appeared or disappeared.
	Type EventType
}
