package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/whiteboard-server/internal/core"
	"github.com/vovakirdan/whiteboard-server/internal/proto"
	"github.com/vovakirdan/whiteboard-server/internal/store"
	"github.com/vovakirdan/whiteboard-server/internal/utils"
)

const createRoomAttempts = 3

// PresenceSource reports the live participants of a room.
type PresenceSource interface {
	Participants(room string) []core.ParticipantInfo
}

// RoomHandlers provides HTTP handlers for room management endpoints.
type RoomHandlers struct {
	store    store.Store
	presence PresenceSource
	log      *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.Store, presence PresenceSource, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		store:    st,
		presence: presence,
		log:      logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=64"`
	IsPublic bool   `json:"isPublic"`
}

// UpdateRoomRequest carries optional room fields.
type UpdateRoomRequest struct {
	Name     *string `json:"name"`
	IsPublic *bool   `json:"isPublic"`
}

// SaveCanvasRequest represents the canvas update body.
type SaveCanvasRequest struct {
	CanvasData string `json:"canvasData" binding:"required"`
}

// AddCollaboratorRequest represents the collaborator body.
type AddCollaboratorRequest struct {
	Email string `json:"email" binding:"required"`
}

// OwnerResponse describes a room owner.
type OwnerResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID           int64          `json:"id"`
	RoomID       string         `json:"roomId"`
	Name         string         `json:"name"`
	IsPublic     bool           `json:"isPublic"`
	IsOwner      bool           `json:"isOwner"`
	Owner        *OwnerResponse `json:"owner,omitempty"`
	CanvasData   *string        `json:"canvasData,omitempty"`
	CreatedAt    string         `json:"createdAt"`
	LastModified string         `json:"lastModified"`
}

func roomResponse(room *store.Room, uid int64) RoomResponse {
	return RoomResponse{
		ID:           room.ID,
		RoomID:       room.Key,
		Name:         room.Name,
		IsPublic:     room.IsPublic,
		IsOwner:      room.OwnerID == uid,
		CreatedAt:    room.CreatedAt.UTC().Format(time.RFC3339),
		LastModified: room.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func detailedRoomResponse(room *store.Room, uid int64) RoomResponse {
	resp := roomResponse(room, uid)
	resp.Owner = &OwnerResponse{ID: room.OwnerID, Name: room.OwnerName, Email: room.OwnerEmail}
	canvas := room.CanvasData
	resp.CanvasData = &canvas
	return resp
}

// CreateRoom handles room creation.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room name is required"})
		return
	}

	var (
		room *store.Room
		err  error
	)
	for i := 0; i < createRoomAttempts; i++ {
		room, err = h.store.CreateRoom(c.Request.Context(), utils.NewRoomKey(), name, uid, req.IsPublic)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
	}
	if err != nil {
		h.log.Error().Err(err).Str("room_name", name).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("room_key", room.Key).Int64("owner_id", uid).Msg("room created successfully")
	c.JSON(http.StatusCreated, gin.H{"message": "room created", "room": roomResponse(room, uid)})
}

// ListRooms lists rooms the user owns or collaborates on.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	rooms, err := h.store.ListRoomsForUser(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := lo.Map(rooms, func(room *store.Room, _ int) RoomResponse {
		return roomResponse(room, uid)
	})

	h.log.Debug().Int64("user_id", uid).Int("room_count", len(rooms)).Msg("rooms listed successfully")
	c.JSON(http.StatusOK, gin.H{"rooms": response})
}

// GetRoom returns a room with its canvas.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	uid, room, ok := h.loadRoom(c, accessRead)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": detailedRoomResponse(room, uid)})
}

// UpdateRoom changes name or visibility. Owner only.
// PUT /api/rooms/:id
func (h *RoomHandlers) UpdateRoom(c *gin.Context) {
	uid, room, ok := h.loadRoom(c, accessOwner)
	if !ok {
		return
	}

	var req UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" || len(trimmed) > 64 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room name"})
			return
		}
		req.Name = &trimmed
	}

	updated, err := h.store.UpdateRoom(c.Request.Context(), room.Key, store.RoomUpdate{Name: req.Name, IsPublic: req.IsPublic})
	if err != nil {
		h.storeError(c, err, "failed to update room")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "room updated", "room": roomResponse(updated, uid)})
}

// SaveCanvas stores canvas data. Owner or collaborator.
// PUT /api/rooms/:id/canvas
func (h *RoomHandlers) SaveCanvas(c *gin.Context) {
	_, room, ok := h.loadRoom(c, accessWrite)
	if !ok {
		return
	}

	var req SaveCanvasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.store.SaveCanvas(c.Request.Context(), room.Key, req.CanvasData); err != nil {
		h.storeError(c, err, "failed to save canvas")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "canvas saved"})
}

// AddCollaborator grants another user access. Owner only.
// POST /api/rooms/:id/collaborators
func (h *RoomHandlers) AddCollaborator(c *gin.Context) {
	uid, room, ok := h.loadRoom(c, accessOwner)
	if !ok {
		return
	}

	var req AddCollaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.storeError(c, err, "failed to look up collaborator")
		return
	}
	if user.ID == uid {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "owner is already a member"})
		return
	}

	if err := h.store.AddCollaborator(ctx, room.ID, user.ID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user is already a collaborator"})
			return
		}
		h.storeError(c, err, "failed to add collaborator")
		return
	}

	h.log.Info().Str("room_key", room.Key).Int64("collaborator_id", user.ID).Msg("collaborator added")
	c.JSON(http.StatusOK, gin.H{"message": "collaborator added"})
}

// DeleteRoom removes a room. Owner only.
// DELETE /api/rooms/:id
func (h *RoomHandlers) DeleteRoom(c *gin.Context) {
	_, room, ok := h.loadRoom(c, accessOwner)
	if !ok {
		return
	}

	if err := h.store.DeleteRoom(c.Request.Context(), room.Key); err != nil {
		h.storeError(c, err, "failed to delete room")
		return
	}
	h.log.Info().Str("room_key", room.Key).Msg("room deleted")
	c.JSON(http.StatusOK, gin.H{"message": "room deleted"})
}

// Participants returns who is live in the room right now.
// GET /api/rooms/:id/participants
func (h *RoomHandlers) Participants(c *gin.Context) {
	_, room, ok := h.loadRoom(c, accessRead)
	if !ok {
		return
	}

	entries := lo.Map(h.presence.Participants(room.Key), func(p core.ParticipantInfo, _ int) proto.PresenceEntry {
		return proto.PresenceEntry{ParticipantID: p.ID, DisplayName: p.DisplayName}
	})
	c.JSON(http.StatusOK, gin.H{"participants": entries})
}

type accessLevel int

const (
	accessRead accessLevel = iota
	accessWrite
	accessOwner
)

// loadRoom resolves :id and enforces the access level, writing the error response on failure.
func (h *RoomHandlers) loadRoom(c *gin.Context, level accessLevel) (int64, *store.Room, bool) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return 0, nil, false
	}

	ctx := c.Request.Context()
	room, err := h.store.GetRoomByKey(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return 0, nil, false
		}
		h.storeError(c, err, "failed to load room")
		return 0, nil, false
	}

	allowed, err := h.allowed(ctx, room, uid, level)
	if err != nil {
		h.storeError(c, err, "failed to check room access")
		return 0, nil, false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})
		return 0, nil, false
	}
	return uid, room, true
}

func (h *RoomHandlers) allowed(ctx context.Context, room *store.Room, uid int64, level accessLevel) (bool, error) {
	if room.OwnerID == uid {
		return true, nil
	}
	if level == accessOwner {
		return false, nil
	}
	if level == accessRead && room.IsPublic {
		return true, nil
	}
	return h.store.IsCollaborator(ctx, room.ID, uid)
}

func (h *RoomHandlers) storeError(c *gin.Context, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	h.log.Error().Err(err).Msg(msg)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
