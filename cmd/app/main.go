package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wordchain/internal/config"
	"wordchain/internal/db"
	"wordchain/internal/dictionary"
	"wordchain/internal/domain"
	"wordchain/internal/game"
	httpServer "wordchain/internal/http"
	"wordchain/internal/http/middleware"
	"wordchain/internal/logger"
	"wordchain/internal/pool"
	"wordchain/internal/repository"
	"wordchain/internal/service"
	"wordchain/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "1")
	cfg := config.Load()
	service.InitAuthTokens(cfg.AuthJWTSecret, cfg.AuthCookieExpiration)

	// rootCtx outlives any single request; the game loops and the reaper
	// run under it and stop on shutdown.
	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	dbPool := db.Connect(rootCtx, cfg.DatabaseURI)
	defer dbPool.Close()

	playerRepo := repository.NewPlayerRepository(dbPool)
	roomRepo := repository.NewRoomRepository(dbPool)
	gameRepo := repository.NewGameRepository(dbPool)
	messageRepo := repository.NewMessageRepository(dbPool)
	statsRepo := repository.NewStatsRepository(dbPool)

	// The root player and the lobby row must exist before anything else
	// references them.
	bootCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()
	if err := playerRepo.EnsureRoot(bootCtx, cfg.RootID); err != nil {
		logger.Fatal("could not ensure root player", "error", err)
	}
	if err := roomRepo.EnsureLobby(bootCtx, cfg.LobbyID); err != nil {
		logger.Fatal("could not ensure lobby room", "error", err)
	}

	root := domain.NewRoot(cfg.RootID)
	p := pool.New(domain.NewLobby(cfg.LobbyID, root))

	manager := ws.NewConnectionManager(p)
	chat := ws.NewChat(messageRepo, manager, *root)
	games := game.NewManager()
	checker := dictionary.NewClient(cfg.DictionaryAPIURL, cfg.DictionaryAPIKey)

	runner := service.NewGameRunner(manager, chat, games, gameRepo, p, cfg.GameStartDelay, cfg.TurnStartDelay)
	roomSvc := service.NewRoomService(p, manager, chat, roomRepo, gameRepo, games, checker, cfg.MaxTurnTimeDeviation, runner, rootCtx)
	statsSvc := service.NewStatsService(statsRepo, 30*time.Second)

	reaper := service.NewRoomReaper(p, roomRepo, manager, cfg.RoomDeletionInterval, cfg.RoomDeletionDelay)
	go reaper.Run(rootCtx)

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	r := gin.Default()
	r.Use(cors(cfg.CORSOrigins))

	connect := &ws.ConnectHandler{
		Manager: manager,
		Router:  ws.NewRouter(p, games, chat),
		Pool:    p,
		Chat:    chat,
		Origins: cfg.CORSOrigins,
	}
	httpServer.RegisterRoutes(r, httpServer.Deps{
		Config:  cfg,
		DB:      dbPool,
		Players: playerRepo,
		Rooms:   roomSvc,
		Stats:   statsSvc,
		Connect: connect,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stop()

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}
	logger.Info("server exited")
}

// cors allows the configured browser origins with credentials. Cookies
// require an exact origin echo, never a wildcard.
func cors(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (len(allowed) == 0 || allowed[origin]) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
