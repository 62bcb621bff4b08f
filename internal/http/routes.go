package http

import (
	"os"
	"strconv"
	"time"

	"wordchain/internal/config"
	"wordchain/internal/http/handlers"
	"wordchain/internal/http/middleware"
	"wordchain/internal/repository"
	"wordchain/internal/service"
	"wordchain/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps collects everything the routes need, wired in main.
type Deps struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	Players *repository.PlayerRepository
	Rooms   *service.RoomService
	Stats   *service.StatsService
	Connect *ws.ConnectHandler
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	cfg := deps.Config

	playerHandler := handlers.NewPlayerHandler(deps.Players, cfg.AuthCookieName, cfg.AuthCookieExpiration)
	roomHandler := handlers.NewRoomHandler(deps.Rooms)
	statsHandler := handlers.NewStatsHandler(deps.Stats)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	// Limits come from env with safe defaults; auth endpoints are the
	// tightest since the player id is the only credential.
	authRateLimit := envLimit("AUTH_RATE_LIMIT", 5)
	authRateWindow := envWindow("AUTH_RATE_WINDOW_SECONDS", time.Minute)
	roomRateLimit := envLimit("ROOM_RATE_LIMIT", 30)
	roomRateWindow := envWindow("ROOM_RATE_WINDOW_SECONDS", time.Minute)

	r.Use(middleware.Metrics())

	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRL := middleware.RedisRateLimit(authRateLimit, authRateWindow)
	r.POST("/players", authRL, playerHandler.Create)
	r.POST("/players/login", authRL, playerHandler.Login)
	r.GET("/stats", statsHandler.AllTime)

	auth := r.Group("/")
	auth.Use(middleware.CookieAuth(deps.Players, cfg.AuthCookieName, int(cfg.AuthCookieExpiration.Seconds())))

	auth.GET("/players/me", playerHandler.Me)
	auth.POST("/players/logout", playerHandler.Logout)
	auth.GET("/connect", deps.Connect.Handle())

	// Room mutations are limited per player, not per IP.
	roomRL := middleware.PlayerRateLimit(roomRateLimit, roomRateWindow)
	auth.GET("/rooms", roomHandler.List)
	auth.POST("/rooms", roomRL, roomHandler.Create)
	auth.PUT("/rooms/:id", roomRL, roomHandler.Modify)
	auth.POST("/rooms/:id/join", roomRL, roomHandler.Join)
	auth.POST("/rooms/:id/leave", roomRL, roomHandler.Leave)
	auth.POST("/rooms/:id/status", roomRL, roomHandler.ToggleStatus)
	auth.POST("/rooms/:id/ready", roomRL, roomHandler.ToggleReady)
	auth.POST("/rooms/:id/return", roomRL, roomHandler.Return)
	auth.POST("/rooms/:id/players/:name/kick", roomRL, roomHandler.Kick)
	auth.POST("/rooms/:id/start", roomRL, roomHandler.Start)
}

func envLimit(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envWindow(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
