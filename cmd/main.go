package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"talklink/backend/internal/api/handler"
	"talklink/backend/internal/config"
	"talklink/backend/internal/hub"
	"talklink/backend/internal/models"
	"talklink/backend/internal/notify"
	"talklink/backend/internal/presence"
	"talklink/backend/internal/randomtalk"
	"talklink/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Chat{},
		&models.Message{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting TalkLink Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()

	db, rdb := setupDependencies(cfg)
	store := storage.NewService(db, rdb)

	registry := presence.NewRegistry()
	matchmaker := randomtalk.NewMatchmaker(registry, store)
	aggregator := notify.NewAggregator(store, registry)

	liveHub := hub.NewHub(store)
	router := hub.NewRouter(store, registry, matchmaker, aggregator, liveHub)

	liveHub.StartPubSubListener()
	go liveHub.Run()

	r := gin.Default()
	h := handler.NewHandler(router, []byte(cfg.JWTSecret))

	r.GET("/healthz", h.Health)
	r.POST("/token", h.GetToken)
	r.GET("/ws", h.ServeWebSocket)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
