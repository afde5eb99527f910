// cmd/server/main.go
package main

import (
	"context"
	"net/http"

	gorilla "github.com/gorilla/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/cardtable/uno/internal/auth"
	"github.com/cardtable/uno/internal/cache"
	"github.com/cardtable/uno/internal/config"
	"github.com/cardtable/uno/internal/database"
	"github.com/cardtable/uno/internal/handlers"
	"github.com/cardtable/uno/internal/middleware"
	"github.com/cardtable/uno/internal/room"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	if err := auth.Init(cfg.TokenTTL); err != nil {
		logger.Fatalf("failed to init auth: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	manager := room.NewManager(logger)
	srv := handlers.NewSocketServer(logger, manager)

	// Listing changes fan out to local sessions and, when Redis is
	// configured, to every other instance.
	manager.SetListingChangedFn(func() {
		srv.BroadcastListingUpdate()
		if err := cache.PublishListingUpdate(ctx); err != nil {
			logger.Warnf("listing publish failed: %v", err)
		}
	})
	if cfg.RedisAddr != "" {
		if err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB); err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		cache.SubscribeListingUpdates(ctx, srv.BroadcastListingUpdate)
		logger.Infof("listing fanout via redis at %s", cfg.RedisAddr)
	}

	mux := http.NewServeMux()

	mux.Handle("/user/create", middleware.LogMiddleware(logger)(handlers.CreateUserHandler(logger)))
	mux.Handle("/user/login", middleware.LogMiddleware(logger)(handlers.LoginHandler(logger)))

	mux.Handle("/ws", middleware.LogMiddleware(logger)(handlers.WSHandler(logger, srv, cfg.AllowedOrigins)))

	handler := gorilla.CORS(
		gorilla.AllowedOrigins(cfg.AllowedOrigins),
		gorilla.AllowedHeaders([]string{"Content-Type"}),
		gorilla.AllowCredentials(),
	)(mux)

	logger.Infof("Running on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
