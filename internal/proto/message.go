package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	EventDrawSegment     = "draw-segment"
	EventCursorPosition  = "cursor-position"
	EventClearCanvas     = "clear-canvas"
	EventSaveSnapshot    = "save-snapshot"
	EventPresence        = "presence"
	EventParticipantLeft = "participant-left"
	EventError           = "error"
)

// Handshake query parameters on the websocket upgrade request.
const (
	QueryRoom          = "room"
	QueryParticipantID = "participantId"
	QueryDisplayName   = "displayName"
	QueryAuthToken     = "authToken"
)

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// DrawSegment is a single stroke segment. The server forwards it opaquely;
// the type documents the shape clients agree on.
type DrawSegment struct {
	StartX    float64 `json:"startX"`
	StartY    float64 `json:"startY"`
	EndX      float64 `json:"endX"`
	EndY      float64 `json:"endY"`
	Color     string  `json:"color"`
	LineWidth float64 `json:"lineWidth"`
	ToolKind  string  `json:"toolKind"`
}

// CursorPosition is a pointer update.
type CursorPosition struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Color         string  `json:"color"`
	ParticipantID string  `json:"participantId"`
	DisplayName   string  `json:"displayName"`
}

// SaveSnapshot carries a full canvas image.
type SaveSnapshot struct {
	RoomID    string `json:"roomId"`
	ImageData string `json:"imageData"`
}

// PresenceEntry is one participant in a presence announcement.
type PresenceEntry struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
