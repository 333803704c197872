package core

import (
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	// DefaultDisplayName is used when the handshake carries no display name.
	DefaultDisplayName = "Anonymous"
	// DefaultRoom is used when the handshake carries no room.
	DefaultRoom = "lobby"

	defaultEventBuffer = 64
)

// Handshake is the identity a client asserts when it opens a connection.
type Handshake struct {
	Room          string
	ParticipantID string
	DisplayName   string
	Token         string
}

// Normalize fills missing fields with defaults. It reports true when the room
// or participant id had to be invented.
func (h Handshake) Normalize(defaultRoom string) (Handshake, bool) {
	degraded := false

	h.Room = strings.TrimSpace(h.Room)
	h.ParticipantID = strings.TrimSpace(h.ParticipantID)
	h.DisplayName = strings.TrimSpace(h.DisplayName)

	if h.Room == "" {
		if defaultRoom == "" {
			defaultRoom = DefaultRoom
		}
		h.Room = defaultRoom
		degraded = true
	}
	if h.ParticipantID == "" {
		h.ParticipantID = "anon-" + uuid.NewString()[:8]
		degraded = true
	}
	if h.DisplayName == "" {
		h.DisplayName = DefaultDisplayName
	}
	return h, degraded
}

// SessionState is the lifecycle position of a connection.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateJoined
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session binds one transport connection to a (room, participant) pair.
// The transport drains Events; the core never closes the channel.
type Session struct {
	ID            string
	Room          string
	ParticipantID string
	DisplayName   string
	Events        chan *Event

	state   atomic.Int32
	dropped atomic.Uint64
}

// NewSession builds a session in the Connecting state from a normalized handshake.
func NewSession(hs Handshake, buffer int) *Session {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &Session{
		ID:            uuid.NewString(),
		Room:          hs.Room,
		ParticipantID: hs.ParticipantID,
		DisplayName:   hs.DisplayName,
		Events:        make(chan *Event, buffer),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) markJoined() bool {
	return s.state.CompareAndSwap(int32(StateConnecting), int32(StateJoined))
}

// markDisconnected moves the session to its terminal state and returns the
// state it left, or false if it was already disconnected.
func (s *Session) markDisconnected() (SessionState, bool) {
	for {
		cur := s.state.Load()
		if SessionState(cur) == StateDisconnected {
			return StateDisconnected, false
		}
		if s.state.CompareAndSwap(cur, int32(StateDisconnected)) {
			return SessionState(cur), true
		}
	}
}

// Deliver enqueues an event without blocking. Full queues drop the event.
func (s *Session) Deliver(ev *Event) bool {
	select {
	case s.Events <- ev:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Dropped returns how many events were discarded for this session.
func (s *Session) Dropped() uint64 {
	return s.dropped.Load()
}

// Participant is a session registered in a room.
type Participant struct {
	ID          string
	DisplayName string
	Session     *Session
}

// Info strips the connection handle.
func (p Participant) Info() ParticipantInfo {
	return ParticipantInfo{ID: p.ID, DisplayName: p.DisplayName}
}

// ParticipantInfo is the presence view of a participant.
type ParticipantInfo struct {
	ID          string
	DisplayName string
}

func participantFromSession(s *Session) *Participant {
	return &Participant{
		ID:          s.ParticipantID,
		DisplayName: s.DisplayName,
		Session:     s,
	}
}
