package core

import "github.com/samber/lo"

// Presence announces room membership. It never diffs: every announcement
// carries the full list.
type Presence struct {
	registry *Registry
	rec      Recorder
}

// NewPresence builds a broadcaster over the given registry.
func NewPresence(registry *Registry, rec Recorder) *Presence {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Presence{registry: registry, rec: rec}
}

// Announce sends the current participant list to everyone in the room,
// including a participant that just joined. It returns the number of
// sessions that accepted the event.
func (p *Presence) Announce(room string) int {
	members := p.registry.ListParticipants(room)
	if len(members) == 0 {
		return 0
	}

	ev := &Event{
		Kind:         EventPresence,
		Room:         room,
		Participants: lo.Map(members, func(m Participant, _ int) ParticipantInfo { return m.Info() }),
	}

	delivered := 0
	for _, m := range members {
		if m.Session.Deliver(ev) {
			delivered++
		} else {
			p.rec.EventDropped("slow_consumer")
		}
	}
	return delivered
}

// AnnounceLeft tells the remaining participants that participantID is gone.
func (p *Presence) AnnounceLeft(room, participantID string) int {
	ev := &Event{
		Kind:          EventParticipantLeft,
		Room:          room,
		ParticipantID: participantID,
	}

	delivered := 0
	for _, m := range p.registry.ListParticipants(room) {
		if m.ID == participantID {
			continue
		}
		if m.Session.Deliver(ev) {
			delivered++
		} else {
			p.rec.EventDropped("slow_consumer")
		}
	}
	return delivered
}
