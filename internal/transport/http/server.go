package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/whiteboard-server/internal/auth"
	"github.com/vovakirdan/whiteboard-server/internal/config"
	"github.com/vovakirdan/whiteboard-server/internal/core"
	"github.com/vovakirdan/whiteboard-server/internal/metrics"
	"github.com/vovakirdan/whiteboard-server/internal/store"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// NewServer builds the HTTP server: websocket relay, REST API and operational routes.
// m may be nil when metrics are disabled.
func NewServer(
	hub *core.Hub,
	authService *auth.Service,
	st store.Store,
	cfg *config.Config,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) *stdhttp.Server {
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger, m))

	router.GET("/health", healthHandler)
	if m != nil && cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	apiHandlers := NewAPIHandlers(authService, st, cfg.CookieSecure, logger)
	userHandlers := NewUserHandlers(st, authService, logger)
	roomHandlers := NewRoomHandlers(st, hub, logger)
	requireAuth := AuthMiddleware(authService, logger)

	api := router.Group("/api", RateLimitMiddleware(newRateLimiter(cfg.APIRateLimit, cfg.APIRateWindow)))
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/register", apiHandlers.Register)
		authGroup.POST("/login", apiHandlers.Login)
		authGroup.POST("/logout", apiHandlers.Logout)
		authGroup.GET("/me", requireAuth, apiHandlers.Me)

		users := api.Group("/users", requireAuth)
		users.GET("/profile", userHandlers.GetProfile)
		users.PUT("/profile", userHandlers.UpdateProfile)
		users.PUT("/password", userHandlers.ChangePassword)
		users.PUT("/subscription", userHandlers.UpdateSubscription)

		rooms := api.Group("/rooms", requireAuth)
		rooms.POST("", roomHandlers.CreateRoom)
		rooms.GET("", roomHandlers.ListRooms)
		rooms.GET("/:id", roomHandlers.GetRoom)
		rooms.PUT("/:id", roomHandlers.UpdateRoom)
		rooms.DELETE("/:id", roomHandlers.DeleteRoom)
		rooms.PUT("/:id/canvas", roomHandlers.SaveCanvas)
		rooms.POST("/:id/collaborators", roomHandlers.AddCollaborator)
		rooms.GET("/:id/participants", roomHandlers.Participants)
	}

	// The websocket handler hijacks the connection, so it stays outside gin.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, authService, WSOptions{
		RequireToken:    cfg.RequireToken,
		DefaultRoom:     cfg.DefaultRoom,
		EventBuffer:     cfg.EventBuffer,
		MaxMessageBytes: cfg.MaxMessageBytes,
		AllowedOrigins:  cfg.AllowedOrigins,
	}, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           newCORS(cfg.AllowedOrigins).Handler(mux),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
