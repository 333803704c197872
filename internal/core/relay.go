package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

const defaultSnapshotTimeout = 10 * time.Second

// SnapshotSaver durably stores a room's canvas image.
type SnapshotSaver interface {
	SaveCanvas(ctx context.Context, roomKey, imageData string) error
}

// Relay forwards client events to the other participants of a room.
// Delivery is best-effort: no acknowledgement, no retry, no queue beyond
// each session's outbound buffer.
type Relay struct {
	registry    *Registry
	saver       SnapshotSaver
	saveTimeout time.Duration
	rec         Recorder
	log         *zerolog.Logger
}

// NewRelay builds a relay. saver may be nil, in which case snapshots are only forwarded.
func NewRelay(registry *Registry, saver SnapshotSaver, saveTimeout time.Duration, rec Recorder, logger *zerolog.Logger) *Relay {
	if rec == nil {
		rec = nopRecorder{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if saveTimeout <= 0 {
		saveTimeout = defaultSnapshotTimeout
	}
	return &Relay{
		registry:    registry,
		saver:       saver,
		saveTimeout: saveTimeout,
		rec:         rec,
		log:         logger,
	}
}

// Relay forwards payload from senderID to every other participant of room.
// Senders that are not registered in the room are silently dropped.
// It returns the number of sessions that accepted the event.
func (r *Relay) Relay(room, senderID string, kind EventKind, payload json.RawMessage) int {
	if !kind.Relayable() {
		r.rec.EventDropped("not_relayable")
		return 0
	}
	if _, ok := r.registry.Member(room, senderID); !ok {
		r.rec.EventDropped("unregistered_sender")
		return 0
	}

	delivered := r.Deliver(room, senderID, kind, payload)

	if kind == EventSaveSnapshot {
		r.persist(room, senderID, payload)
	}
	return delivered
}

// Deliver fans the event out without membership checks or persistence.
// Events arriving from other instances go through here.
func (r *Relay) Deliver(room, senderID string, kind EventKind, payload json.RawMessage) int {
	ev := &Event{
		Kind:    kind,
		Room:    room,
		From:    senderID,
		Payload: payload,
	}

	delivered := 0
	for _, m := range r.registry.ListParticipants(room) {
		if m.ID == senderID {
			continue
		}
		if m.Session.Deliver(ev) {
			delivered++
		} else {
			r.rec.EventDropped("slow_consumer")
		}
	}
	r.rec.EventRelayed(kind, delivered)
	return delivered
}

// persist hands the snapshot to the saver without waiting for it.
func (r *Relay) persist(room, senderID string, payload json.RawMessage) {
	if r.saver == nil {
		return
	}

	var snap SnapshotPayload
	if err := json.Unmarshal(payload, &snap); err != nil {
		r.log.Warn().Err(err).Str("room", room).Str("participant_id", senderID).Msg("malformed snapshot payload")
		r.rec.SnapshotSaved(err)
		return
	}
	if snap.RoomID != "" && snap.RoomID != room {
		r.log.Debug().Str("room", room).Str("payload_room", snap.RoomID).Msg("snapshot room differs from session room, using session room")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.saveTimeout)
		defer cancel()

		err := r.saver.SaveCanvas(ctx, room, snap.ImageData)
		r.rec.SnapshotSaved(err)
		if err != nil {
			r.log.Warn().Err(err).Str("room", room).Str("participant_id", senderID).Msg("save snapshot failed")
			return
		}
		r.log.Info().Str("room", room).Str("participant_id", senderID).Msg("snapshot saved")
	}()
}
