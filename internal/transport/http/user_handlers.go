package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/whiteboard-server/internal/auth"
	"github.com/vovakirdan/whiteboard-server/internal/store"
)

// UserHandlers provides HTTP handlers for user operations.
type UserHandlers struct {
	store       store.UserStore
	authService *auth.Service
	log         *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.UserStore, authService *auth.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store:       st,
		authService: authService,
		log:         logger,
	}
}

// UpdateProfileRequest carries optional profile fields.
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ChangePasswordRequest represents the password change body.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// SubscriptionRequest represents the subscription change body.
type SubscriptionRequest struct {
	Subscription string `json:"subscription" binding:"required"`
}

// GetProfile returns the current user's profile.
// GET /api/users/profile
func (h *UserHandlers) GetProfile(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), uid)
	if err != nil {
		h.storeError(c, err, "failed to load profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

// UpdateProfile changes name and/or email.
// PUT /api/users/profile
func (h *UserHandlers) UpdateProfile(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	email := ""
	if strings.TrimSpace(req.Email) != "" {
		normalized, err := auth.NormalizeEmail(req.Email)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid email"})
			return
		}
		email = normalized
	}

	user, err := h.store.UpdateUserProfile(c.Request.Context(), uid, name, email)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "email already in use"})
			return
		}
		h.storeError(c, err, "failed to update profile")
		return
	}

	h.log.Info().Int64("user_id", uid).Msg("profile updated")
	c.JSON(http.StatusOK, gin.H{"message": "profile updated", "user": userResponse(user)})
}

// ChangePassword replaces the password.
// PUT /api/users/password
func (h *UserHandlers) ChangePassword(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), uid, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "password updated"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "current password is incorrect"})
	case errors.Is(err, auth.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "password must be at least 6 characters"})
	default:
		h.storeError(c, err, "failed to change password")
	}
}

// UpdateSubscription changes the plan.
// PUT /api/users/subscription
func (h *UserHandlers) UpdateSubscription(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	sub := store.Subscription(strings.ToLower(strings.TrimSpace(req.Subscription)))
	if !sub.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid subscription"})
		return
	}

	if err := h.store.UpdateUserSubscription(c.Request.Context(), uid, sub); err != nil {
		h.storeError(c, err, "failed to update subscription")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "subscription updated", "subscription": string(sub)})
}

func (h *UserHandlers) storeError(c *gin.Context, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}
	h.log.Error().Err(err).Msg(msg)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
