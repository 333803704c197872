package http

import (
	"encoding/json"

	"github.com/samber/lo"

	"github.com/vovakirdan/whiteboard-server/internal/core"
	"github.com/vovakirdan/whiteboard-server/internal/proto"
)

// decodeInbound parses a raw frame. A frame that is not a JSON envelope is a
// protocol error for the sender, never a reason to drop the connection.
func decodeInbound(data []byte) (string, core.EventKind, json.RawMessage, *proto.Error) {
	var inbound proto.Inbound
	if err := json.Unmarshal(data, &inbound); err != nil {
		return "", "", nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed message"}
	}
	kind, payload, perr := inboundToEvent(inbound)
	return inbound.Event, kind, payload, perr
}

// inboundToEvent resolves a client envelope to a relayable kind. Payloads stay opaque.
func inboundToEvent(inbound proto.Inbound) (core.EventKind, json.RawMessage, *proto.Error) {
	if inbound.Event == "" {
		return "", nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "event is required"}
	}

	kind := core.EventKind(inbound.Event)
	if !kind.Relayable() {
		cerr := core.UnknownEventError(inbound.Event)
		return "", nil, &proto.Error{Code: cerr.Code, Msg: cerr.Message}
	}
	return kind, inbound.Data, nil
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventPresence:
		return proto.Outbound{
			Event: proto.EventPresence,
			Data: lo.Map(event.Participants, func(p core.ParticipantInfo, _ int) proto.PresenceEntry {
				return proto.PresenceEntry{ParticipantID: p.ID, DisplayName: p.DisplayName}
			}),
		}
	case core.EventParticipantLeft:
		return proto.Outbound{
			Event: proto.EventParticipantLeft,
			Data:  event.ParticipantID,
		}
	default:
		out := proto.Outbound{Event: string(event.Kind)}
		if len(event.Payload) > 0 {
			out.Data = event.Payload
		}
		return out
	}
}

func errorOutbound(perr *proto.Error) proto.Outbound {
	return proto.Outbound{Event: proto.EventError, Error: perr}
}
