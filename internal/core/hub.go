package core

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	commandBuffer  = 256
	outboxBuffer   = 256
	publishTimeout = 2 * time.Second
)

type commandKind int

const (
	cmdConnect commandKind = iota
	cmdDisconnect
	cmdRelay
	cmdRemote
)

type command struct {
	kind    commandKind
	session *Session
	event   EventKind
	payload json.RawMessage
	remote  BusMessage
}

// HubOptions configures optional collaborators of the hub.
type HubOptions struct {
	Saver       SnapshotSaver
	SaveTimeout time.Duration
	Bus         Bus
	Recorder    Recorder
	// InstanceID tags messages published on the bus. Generated when empty.
	InstanceID string
}

// Hub serializes every lifecycle and relay operation through one goroutine.
// Queries on the registry are safe from any goroutine.
type Hub struct {
	registry   *Registry
	presence   *Presence
	relay      *Relay
	bus        Bus
	instanceID string
	rec        Recorder
	log        *zerolog.Logger

	commands chan command
	outbox   chan BusMessage
	done     chan struct{}
}

// NewHub creates a hub with an empty registry.
func NewHub(logger *zerolog.Logger, opts HubOptions) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	instanceID := opts.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	registry := NewRegistry()
	return &Hub{
		registry:   registry,
		presence:   NewPresence(registry, rec),
		relay:      NewRelay(registry, opts.Saver, opts.SaveTimeout, rec, logger),
		bus:        opts.Bus,
		instanceID: instanceID,
		rec:        rec,
		log:        logger,
		commands:   make(chan command, commandBuffer),
		outbox:     make(chan BusMessage, outboxBuffer),
		done:       make(chan struct{}),
	}
}

// Run processes commands until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	if h.bus != nil {
		go h.subscribe(ctx)
		go h.publishLoop(ctx)
	}

	for {
		select {
		case cmd := <-h.commands:
			h.handle(cmd)
		case <-ctx.Done():
			return
		}
	}
}

// Connect registers s in its room and announces presence.
func (h *Hub) Connect(s *Session) error {
	return h.enqueue(command{kind: cmdConnect, session: s})
}

// Disconnect removes s from its room. Repeated calls are no-ops.
func (h *Hub) Disconnect(s *Session) error {
	return h.enqueue(command{kind: cmdDisconnect, session: s})
}

// Dispatch relays an event from s to the rest of its room.
func (h *Hub) Dispatch(s *Session, kind EventKind, payload json.RawMessage) error {
	if !kind.Relayable() {
		return ErrNotRelayable
	}
	return h.enqueue(command{kind: cmdRelay, session: s, event: kind, payload: payload})
}

// Participants returns the presence view of a room.
func (h *Hub) Participants(room string) []ParticipantInfo {
	members := h.registry.ListParticipants(room)
	out := make([]ParticipantInfo, 0, len(members))
	for _, m := range members {
		out = append(out, m.Info())
	}
	return out
}

// RoomCount returns the number of live rooms.
func (h *Hub) RoomCount() int {
	return h.registry.RoomCount()
}

// Registry exposes the underlying registry for read access.
func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) enqueue(cmd command) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.commands <- cmd:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) handle(cmd command) {
	switch cmd.kind {
	case cmdConnect:
		h.handleConnect(cmd.session)
	case cmdDisconnect:
		h.handleDisconnect(cmd.session)
	case cmdRelay:
		h.handleRelay(cmd.session, cmd.event, cmd.payload)
	case cmdRemote:
		h.handleRemote(cmd.remote)
	}
}

func (h *Hub) handleConnect(s *Session) {
	if !s.markJoined() {
		return
	}

	replaced := h.registry.Join(s.Room, participantFromSession(s))
	if replaced != nil && replaced.Session != s {
		h.log.Info().
			Str("room", s.Room).
			Str("participant_id", s.ParticipantID).
			Str("stale_session_id", replaced.Session.ID).
			Msg("participant reconnected, replacing stale session")
	}
	h.rec.SessionJoined()
	h.rec.RoomsActive(h.registry.RoomCount())

	h.log.Info().
		Str("room", s.Room).
		Str("participant_id", s.ParticipantID).
		Str("display_name", s.DisplayName).
		Str("session_id", s.ID).
		Msg("participant joined room")

	h.presence.Announce(s.Room)
}

func (h *Hub) handleDisconnect(s *Session) {
	prev, first := s.markDisconnected()
	if !first || prev != StateJoined {
		return
	}
	h.rec.SessionLeft()

	if !h.registry.LeaveSession(s.Room, s.ParticipantID, s) {
		// Replaced by a newer session; the room has already been told.
		return
	}
	h.rec.RoomsActive(h.registry.RoomCount())

	h.log.Info().
		Str("room", s.Room).
		Str("participant_id", s.ParticipantID).
		Str("session_id", s.ID).
		Msg("participant left room")

	h.presence.AnnounceLeft(s.Room, s.ParticipantID)
	h.presence.Announce(s.Room)
}

func (h *Hub) handleRelay(s *Session, kind EventKind, payload json.RawMessage) {
	if s.State() != StateJoined {
		h.rec.EventDropped("unregistered_sender")
		return
	}
	member, ok := h.registry.Member(s.Room, s.ParticipantID)
	if !ok || member.Session != s {
		h.rec.EventDropped("unregistered_sender")
		return
	}

	h.relay.Relay(s.Room, s.ParticipantID, kind, payload)

	if h.bus != nil {
		msg := BusMessage{
			Origin:  h.instanceID,
			Room:    s.Room,
			From:    s.ParticipantID,
			Kind:    kind,
			Payload: payload,
		}
		select {
		case h.outbox <- msg:
		default:
			h.rec.EventDropped("bus_backlog")
		}
	}
}

func (h *Hub) handleRemote(msg BusMessage) {
	if msg.Origin == h.instanceID || !msg.Kind.Relayable() {
		return
	}
	h.relay.Deliver(msg.Room, msg.From, msg.Kind, msg.Payload)
}

func (h *Hub) subscribe(ctx context.Context) {
	err := h.bus.Subscribe(ctx, func(msg BusMessage) {
		select {
		case h.commands <- command{kind: cmdRemote, remote: msg}:
		case <-ctx.Done():
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.log.Error().Err(err).Msg("bus subscription ended")
	}
}

// publishLoop keeps bus publishes off the dispatch goroutine. A single
// publisher preserves per-sender order.
func (h *Hub) publishLoop(ctx context.Context) {
	for {
		select {
		case msg := <-h.outbox:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := h.bus.Publish(pctx, msg); err != nil {
				h.log.Warn().Err(err).Str("room", msg.Room).Msg("bus publish failed")
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}
}
