package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"forkful/auth"
	"forkful/cascade"
	"forkful/db"
	"forkful/events"
	"forkful/feed"
	"forkful/live"
	"forkful/middleware"
	"forkful/notify"
	"forkful/rdx"
	"forkful/recipes"
	"forkful/relations"
	"forkful/routes"
	"forkful/store"
	"forkful/store/mongostore"
	"forkful/users"
	"forkful/utils"
)

func setupRouter(st store.Store, bus *events.Bus, hub *live.Hub) http.Handler {
	router := httprouter.New()
	router.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "ok"})
	})

	authMw := middleware.NewAuth(st)
	engine := relations.NewEngine(st, bus)
	cascader := cascade.NewCascader(st)
	cascader.Register(bus)
	notifier := notify.NewNotifier(st, hub)
	notifier.Register(bus)

	userHandler := users.NewHandler(st, bus)
	recipeHandler := recipes.NewHandler(st, bus, cascader)
	relationHandler := relations.NewHandler(engine, st)
	feedHandler := feed.NewHandler(feed.NewService(st))
	notifyHandler := notify.NewHandler(notifier)

	routes.AddAuthRoutes(router, userHandler)
	routes.AddUserRoutes(router, userHandler, relationHandler, authMw)
	routes.AddRecipeRoutes(router, recipeHandler, relationHandler, authMw)
	routes.AddFeedRoutes(router, feedHandler, authMw)
	routes.AddNotificationRoutes(router, notifyHandler, hub, authMw)
	routes.AddStaticRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return middleware.Recover(middleware.Logging(middleware.SecurityHeaders(c.Handler(router))))
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, relying on environment")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal().Msg("JWT_SECRET environment variable is not set")
	}
	auth.Secret = []byte(secret)

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		log.Fatal().Msg("MONGODB_URI environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := db.Connect(ctx, mongoURI)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}()
	log.Info().Msg("connected to MongoDB")

	if err := rdx.Init(os.Getenv("REDIS_ADDR")); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}

	dbName := os.Getenv("MONGODB_DATABASE")
	if dbName == "" {
		dbName = "forkful"
	}
	st := mongostore.New(client, dbName)

	bus := events.NewBus()
	hub := live.NewHub()
	go hub.Run()

	handler := setupRouter(st, bus, hub)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":10000"
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)
	<-shutdownChan

	log.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server shutdown failed")
	}

	// Let in-flight fan-out handlers finish before the process exits.
	bus.Wait()
	log.Info().Msg("server stopped cleanly")
}
