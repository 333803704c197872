package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/whiteboard-server/internal/auth"
	"github.com/vovakirdan/whiteboard-server/internal/core"
	"github.com/vovakirdan/whiteboard-server/internal/proto"
)

const (
	pingInterval = 20 * time.Second
	pingTimeout  = 10 * time.Second
)

// TokenVerifier resolves a handshake token to an identity.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// WSOptions configures the websocket handshake.
type WSOptions struct {
	RequireToken    bool
	DefaultRoom     string
	EventBuffer     int
	MaxMessageBytes int64
	AllowedOrigins  []string
}

// WSHandler upgrades HTTP connections and bridges them to a core.Session.
type WSHandler struct {
	hub      *core.Hub
	verifier TokenVerifier
	opts     WSOptions
	accept   websocket.AcceptOptions
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, verifier TokenVerifier, opts WSOptions, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:      hub,
		verifier: verifier,
		opts:     opts,
		accept:   acceptOptions(opts.AllowedOrigins),
		log:      logger,
	}
}

// acceptOptions turns configured origins into host patterns for the upgrade check.
func acceptOptions(origins []string) websocket.AcceptOptions {
	var patterns []string
	for _, o := range origins {
		if o == "*" {
			return websocket.AcceptOptions{InsecureSkipVerify: true}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return websocket.AcceptOptions{OriginPatterns: patterns}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	q := r.URL.Query()
	hs := core.Handshake{
		Room:          q.Get(proto.QueryRoom),
		ParticipantID: q.Get(proto.QueryParticipantID),
		DisplayName:   q.Get(proto.QueryDisplayName),
		Token:         q.Get(proto.QueryAuthToken),
	}

	if h.opts.RequireToken {
		if h.verifier == nil || hs.Token == "" {
			stdhttp.Error(w, "authentication required", stdhttp.StatusUnauthorized)
			return
		}
		identity, err := h.verifier.Verify(hs.Token)
		if err != nil {
			h.log.Debug().Err(err).Msg("ws handshake rejected")
			stdhttp.Error(w, "invalid token", stdhttp.StatusUnauthorized)
			return
		}
		if hs.DisplayName == "" {
			hs.DisplayName = identity.Name
		}
	}

	hs, degraded := hs.Normalize(h.opts.DefaultRoom)
	if degraded {
		h.log.Warn().
			Str("room", hs.Room).
			Str("participant_id", hs.ParticipantID).
			Msg("incomplete handshake, using defaults")
	}

	accept := h.accept
	conn, err := websocket.Accept(w, r, &accept)
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}

	session := core.NewSession(hs, h.opts.EventBuffer)
	if err := h.hub.Connect(session); err != nil {
		h.log.Warn().Err(err).Msg("hub unavailable")
		conn.Close(websocket.StatusTryAgainLater, "server shutting down")
		return
	}
	defer func() {
		_ = h.hub.Disconnect(session)
	}()

	logger := h.log.With().
		Str("session_id", session.ID).
		Str("room", session.Room).
		Str("participant_id", session.ParticipantID).
		Logger()
	logger.Debug().Msg("ws session opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session, &logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	logger.Debug().Uint64("dropped", session.Dropped()).Msg("ws session closed")
	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session, logger *zerolog.Logger) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("read ws inbound")
			return err
		}

		name, kind, payload, protoErr := decodeInbound(data)
		if protoErr != nil {
			logger.Debug().Str("event", name).Str("code", protoErr.Code).Msg("rejected inbound")
			if err := wsjson.Write(ctx, conn, errorOutbound(protoErr)); err != nil {
				return err
			}
			continue
		}

		if err := h.hub.Dispatch(session, kind, payload); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session, logger *zerolog.Logger) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-session.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				logger.Debug().Err(err).Str("event", string(event.Kind)).Msg("write ws event")
				return err
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
