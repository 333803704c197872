package core

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Registry maps room keys to their current participants.
// Rooms exist only while they have at least one participant.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Participant
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[string]*Participant)}
}

// Join inserts p into room, creating the room if needed. An existing entry
// with the same participant id is replaced; its session is not closed.
// It returns the replaced participant, if any.
func (r *Registry) Join(room string, p *Participant) *Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*Participant)
		r.rooms[room] = members
	}
	prev := members[p.ID]
	members[p.ID] = p
	return prev
}

// Leave removes a participant. Unknown rooms and ids are ignored.
// The room is deleted as soon as it becomes empty.
func (r *Registry) Leave(room, participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(room, participantID, nil)
}

// LeaveSession removes the participant only if its entry still belongs to s.
// It reports whether an entry was removed.
func (r *Registry) LeaveSession(room, participantID string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(room, participantID, s)
}

func (r *Registry) removeLocked(room, participantID string, s *Session) bool {
	members, ok := r.rooms[room]
	if !ok {
		return false
	}
	p, ok := members[participantID]
	if !ok {
		return false
	}
	if s != nil && p.Session != s {
		return false
	}
	delete(members, participantID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	return true
}

// ListParticipants returns a snapshot of the room sorted by participant id.
// Unknown rooms yield an empty slice.
func (r *Registry) ListParticipants(room string) []Participant {
	r.mu.RLock()
	members := r.rooms[room]
	out := lo.MapToSlice(members, func(_ string, p *Participant) Participant {
		return *p
	})
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Member looks up a single participant.
func (r *Registry) Member(room, participantID string) (*Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.rooms[room][participantID]
	return p, ok
}

// Rooms returns the keys of all live rooms, sorted.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	keys := lo.Keys(r.rooms)
	r.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// RoomCount returns the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
