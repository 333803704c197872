package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/whiteboard-server/internal/log"
	"github.com/vovakirdan/whiteboard-server/internal/proto"
)

// Two participants join the same room; the first draws a segment and the
// second must receive it unchanged.
func main() {
	logger := log.New("info")
	if err := run(logger); err != nil {
		logger.Error().Err(err).Msg("ws_smoke failed")
		os.Exit(1)
	}
	logger.Info().Msg("ws_smoke ok")
}

type wireMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func run(logger *zerolog.Logger) error {
	addr := flag.String("addr", "ws://localhost:3001/ws", "WebSocket address")
	room := flag.String("room", "smoke", "room key")
	token := flag.String("token", "", "auth token when the server requires one")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	painter, err := join(ctx, *addr, *room, "smoke-painter", *token)
	if err != nil {
		return err
	}
	defer painter.Close(websocket.StatusNormalClosure, "bye")

	viewer, err := join(ctx, *addr, *room, "smoke-viewer", *token)
	if err != nil {
		return err
	}
	defer viewer.Close(websocket.StatusNormalClosure, "bye")

	if err := awaitPresence(ctx, logger, viewer, 2); err != nil {
		return err
	}

	segment := proto.DrawSegment{StartX: 10, StartY: 10, EndX: 42, EndY: 42, Color: "#ff0000", LineWidth: 3, ToolKind: "pen"}
	payload, err := json.Marshal(segment)
	if err != nil {
		return fmt.Errorf("marshal segment: %w", err)
	}
	if err := wsjson.Write(ctx, painter, proto.Inbound{Event: proto.EventDrawSegment, Data: payload}); err != nil {
		return fmt.Errorf("send segment: %w", err)
	}

	for {
		msg, err := read(ctx, viewer)
		if err != nil {
			return err
		}
		if msg.Event != proto.EventDrawSegment {
			logger.Debug().Str("event", msg.Event).Msg("skipping")
			continue
		}
		var got proto.DrawSegment
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			return fmt.Errorf("unmarshal segment: %w", err)
		}
		if got != segment {
			return fmt.Errorf("segment mismatch: got %+v want %+v", got, segment)
		}
		logger.Info().Str("room", *room).Msg("draw-segment relayed")
		return nil
	}
}

func join(ctx context.Context, addr, room, participant, token string) (*websocket.Conn, error) {
	q := url.Values{}
	q.Set(proto.QueryRoom, room)
	q.Set(proto.QueryParticipantID, participant)
	q.Set(proto.QueryDisplayName, participant)
	if token != "" {
		q.Set(proto.QueryAuthToken, token)
	}

	conn, _, err := websocket.Dial(ctx, addr+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", participant, err)
	}
	return conn, nil
}

func awaitPresence(ctx context.Context, logger *zerolog.Logger, conn *websocket.Conn, want int) error {
	for {
		msg, err := read(ctx, conn)
		if err != nil {
			return err
		}
		if msg.Event != proto.EventPresence {
			continue
		}
		var entries []proto.PresenceEntry
		if err := json.Unmarshal(msg.Data, &entries); err != nil {
			return fmt.Errorf("unmarshal presence: %w", err)
		}
		logger.Info().Int("participants", len(entries)).Msg("presence")
		if len(entries) >= want {
			return nil
		}
	}
}

func read(ctx context.Context, conn *websocket.Conn) (wireMessage, error) {
	var msg wireMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		return msg, fmt.Errorf("read: %w", err)
	}
	if msg.Error != nil {
		return msg, fmt.Errorf("server error %s: %s", msg.Error.Code, msg.Error.Msg)
	}
	return msg, nil
}
