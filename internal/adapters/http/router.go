package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/holysmokas/translation-server/internal/adapters/ws"
	"github.com/holysmokas/translation-server/internal/app"
	"github.com/holysmokas/translation-server/internal/auth"
	"github.com/holysmokas/translation-server/internal/config"
	"github.com/holysmokas/translation-server/internal/core"
	"github.com/holysmokas/translation-server/internal/domain"
)

// ClientTokenMiddleware pins a long-lived token cookie on every
// client; it is the identity guest quota checks are charged to.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

type Server struct {
	cfg       *config.Config
	directory *app.Directory
	guard     *app.Guard
	tokens    *auth.TokenManager
	wsCtl     *ws.Controller
}

func NewServer(cfg *config.Config, dir *app.Directory, guard *app.Guard, tokens *auth.TokenManager, wsCtl *ws.Controller) *Server {
	return &Server{cfg: cfg, directory: dir, guard: guard, tokens: tokens, wsCtl: wsCtl}
}

func (s *Server) SetupRouter(ctx context.Context) *gin.Engine {
	if s.cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if s.cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(s.cfg.Secret))
	r.Use(sessions.Sessions("TranslationSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	api.POST("/room/create", s.handleCreateRoom)
	api.POST("/room/join/:code", s.handleJoinRoom)
	api.GET("/room/:code", s.handleRoomInfo)
	api.DELETE("/room/:code", s.handleCloseRoom)
	api.GET("/languages", s.handleLanguages)
	api.GET("/stats", s.handleStats)
	api.GET("/usage", s.handleUsage)

	r.GET("/ws/:code/:user_id", func(c *gin.Context) {
		s.wsCtl.Handle(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "running",
		"service": "Real-Time Translation Server",
		"mode":    "bidirectional",
		"endpoints": gin.H{
			"health":      "/health",
			"create_room": "POST /api/room/create",
			"join_room":   "POST /api/room/join/{room_code}",
			"websocket":   "WS /ws/{room_code}/{user_id}",
			"languages":   "/api/languages",
			"stats":       "/api/stats",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      "translation-api",
		"active_rooms": s.directory.Stats().ActiveRooms,
	})
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	room := s.directory.CreateRoom()
	code := room.Room().Code
	c.JSON(http.StatusOK, gin.H{
		"room_code":     code,
		"created_at":    room.Room().CreatedAt,
		"websocket_url": fmt.Sprintf("/ws/%s/{user_id}", code),
		"message":       "Room created - share code with conversation partners",
	})
}

func (s *Server) handleRoomInfo(c *gin.Context) {
	// Describe reads the mutable room fields under the directory lock.
	detail, ok := s.directory.Describe(c.Param("code"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room_code":    detail.Code,
		"participants": detail.Participants,
		"created_at":   detail.CreatedAt,
		"is_active":    detail.Active,
	})
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	room, ok := s.directory.GetRoom(c.Param("code"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	userName := c.DefaultQuery("user_name", "Guest")
	lang := domain.Language(c.DefaultQuery("language", "en"))
	if !lang.Supported() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Language %q is not supported", lang)})
		return
	}

	uid := domain.NewUserID()
	code := room.Room().Code
	c.JSON(http.StatusOK, gin.H{
		"room_code":     code,
		"user_id":       uid,
		"user_name":     userName,
		"language":      lang,
		"websocket_url": fmt.Sprintf("/ws/%s/%s", code, uid),
		"message":       fmt.Sprintf("Ready to join room %s", code),
	})
}

func (s *Server) handleCloseRoom(c *gin.Context) {
	room, ok := s.directory.GetRoom(c.Param("code"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	// Shutdown notice goes out before the directory forgets the room.
	if frame, err := core.MarshalFrame(core.SystemEnvelope{
		Type:    core.EnvelopeSystem,
		Message: "Room has been closed",
		Action:  "disconnect",
	}); err == nil {
		room.Broadcast("", frame)
	}
	s.directory.CloseRoom(room.Room().Code)

	c.JSON(http.StatusOK, gin.H{"status": "Room closed", "room_code": room.Room().Code})
}

func (s *Server) handleLanguages(c *gin.Context) {
	langs := domain.SupportedLanguages()
	c.JSON(http.StatusOK, gin.H{
		"mode":                "bidirectional",
		"note":                "Each user selects their native language. System translates between all pairs.",
		"total_languages":     len(langs),
		"supported_languages": langs,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"rooms": s.directory.Stats(),
		"usage": s.guard.GlobalStats(),
	})
}

// handleUsage reports the caller's quota state. Registered users
// authenticate with a bearer token; everyone else is a guest session.
func (s *Server) handleUsage(c *gin.Context) {
	ident := app.Identity{ID: c.GetString("client_token"), Tier: domain.TierGuest}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		claims, err := s.tokens.Verify(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		ident = app.Identity{ID: claims.UserID, Tier: claims.Tier}
	}
	c.JSON(http.StatusOK, s.guard.Usage(ident))
}
