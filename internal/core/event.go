package core

import "encoding/json"

// EventKind names a channel on the wire.
type EventKind string

const (
	// EventDrawSegment carries one stroke segment.
	EventDrawSegment EventKind = "draw-segment"
	// EventCursorPosition carries a participant's pointer position.
	EventCursorPosition EventKind = "cursor-position"
	// EventClearCanvas asks every peer to wipe its canvas. No payload.
	EventClearCanvas EventKind = "clear-canvas"
	// EventSaveSnapshot carries a full canvas image and triggers persistence.
	EventSaveSnapshot EventKind = "save-snapshot"

	// EventPresence lists the participants of a room (server to client only).
	EventPresence EventKind = "presence"
	// EventParticipantLeft names a participant that disconnected (server to client only).
	EventParticipantLeft EventKind = "participant-left"
)

// Relayable reports whether clients may send this kind for fan-out.
func (k EventKind) Relayable() bool {
	switch k {
	case EventDrawSegment, EventCursorPosition, EventClearCanvas, EventSaveSnapshot:
		return true
	default:
		return false
	}
}

// Event is delivered to a session's outbound queue.
type Event struct {
	Kind EventKind
	Room string
	// From is the sending participant id for relayed events.
	From string
	// Payload is forwarded opaquely for relayed kinds.
	Payload json.RawMessage
	// Participants is set for EventPresence.
	Participants []ParticipantInfo
	// ParticipantID is set for EventParticipantLeft.
	ParticipantID string
}

// SnapshotPayload is the body of a save-snapshot event.
type SnapshotPayload struct {
	RoomID    string `json:"roomId"`
	ImageData string `json:"imageData"`
}
