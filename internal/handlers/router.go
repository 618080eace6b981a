package handlers

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"chat-relay/internal/config"
	"chat-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Rooms     *RoomHandlers
	Invites   *InviteHandlers
	WebSocket *WebSocketHandlers
}

func SetupRouter(cfg config.ServerConfig, h Handlers) *gin.Engine {
	if cfg.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == gin.DebugMode {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())

	r.GET("/ws", h.WebSocket.HandleWebSocket)
	r.GET("/health", h.Rooms.Health)

	api := r.Group("/api")
	api.GET("/stats", h.Rooms.Stats)
	api.GET("/config", h.Rooms.ClientConfig)
	api.GET("/rooms", h.Rooms.ListRooms)
	api.GET("/rooms/:id/members", h.Rooms.GetRoomMembers)
	api.POST("/invites", h.Invites.CreateInvite)
	api.GET("/invites/:token", h.Invites.ResolveInvite)

	r.NoRoute(spaHandler(cfg.StaticDir))

	logger.With("handlers.router").Info("Router ready, serving static files from %s", cfg.StaticDir)
	return r
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// spaHandler serves files from dir and falls back to index.html so client-side
// routes resolve. Unknown API paths stay 404.
func spaHandler(dir string) gin.HandlerFunc {
	root := gin.Dir(dir, false)
	files := http.FileServer(root)
	index := filepath.Join(dir, "index.html")

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}

		name := path.Clean("/" + c.Request.URL.Path)
		if f, err := root.Open(name); err == nil {
			stat, statErr := f.Stat()
			f.Close()
			if statErr == nil && !stat.IsDir() {
				files.ServeHTTP(c.Writer, c.Request)
				return
			}
		}
		c.File(index)
	}
}
