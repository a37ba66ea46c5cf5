package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jdamiba/twitter-clone/api/middleware"
	"github.com/jdamiba/twitter-clone/api/routes"
	"github.com/jdamiba/twitter-clone/config"
	"github.com/jdamiba/twitter-clone/db"
	"github.com/jdamiba/twitter-clone/services"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	conf := config.AppConfig
	if !config.DebugEnabled() {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Println("Starting server...")

	if err := db.ConnectDB(); err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}

	ctx := context.Background()
	var cache *services.LikeCountCache
	if conf.Redis.Host != "" {
		if err := services.InitRedis(ctx); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer services.CloseRedis()
		cache = services.NewLikeCountCache(services.RedisClient, conf.Redis.LikeCountTTL)
	} else {
		log.Println("Redis is not configured, like counts are read from the database")
	}

	publisher, err := services.NewPublisher(conf.Events)
	if err != nil {
		log.Fatalf("Failed to init event publisher: %v", err)
	}
	events := services.NewEventQueue(publisher, services.QUEUE_WORKER_COUNT, services.QUEUE_BUFFER_SIZE)
	events.StartWorkers()
	defer events.Close()

	ledger := services.NewLedgerService(cache, events)
	threads := services.NewThreadService(ledger)
	router := routes.NewRouter(routes.Deps{
		Posts:  services.NewPostService(ledger, threads, cache, events),
		Feed:   services.NewFeedService(ledger, threads, conf.Feed.PageSize),
		Ledger: ledger,
		Users:  services.NewUserService(ledger),
		Identity: middleware.IdentityConfig{
			JWTSecret:           []byte(conf.Auth.JWTSecret),
			AllowHeaderIdentity: conf.Auth.AllowHeaderIdentity,
		},
		ProvisioningToken: conf.Auth.ProvisioningToken,
		RequestTimeout:    conf.Backend.RequestTimeout,
	})

	server := &http.Server{
		Addr:              conf.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      conf.Backend.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ERROR: server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
