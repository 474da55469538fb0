package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"contacts/internal/auth"
	"contacts/internal/cache"
	"contacts/internal/config"
	"contacts/internal/database"
	"contacts/internal/handler"
	"contacts/internal/mailer"
	"contacts/internal/middleware"
	"contacts/internal/repository"
	"contacts/internal/router"
	"contacts/internal/service"
	"contacts/internal/storage"
	"contacts/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the query cache and rate limiter turn
	// off and refresh validation falls back to the user-row copy.
	rdb := config.NewRedisClient()

	blobs, err := storage.New(storage.LoadConfig())
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	m := mailer.New(cfg)
	mailQueue := mailer.NewPublisher(cfg.RabbitURL)
	go func() {
		if err := mailer.StartConsumer(cfg.RabbitURL, m); err != nil {
			log.Printf("mail consumer stopped: %v", err)
		}
	}()

	users := repository.NewUserRepo(db)
	contactsRepo := repository.NewContactRepo(db)

	codec := auth.NewCodec(cfg.JWTSecret)
	sessions := store.NewRedisSessionStore(rdb)
	authSvc := auth.NewService(users, sessions, codec, mailQueue, blobs, cfg)

	contactCache := cache.NewContactCache(rdb, config.LoadCacheConfig())
	contactSvc := service.NewContactService(contactsRepo, contactCache)

	e := echo.New()
	e.HideBanner = true

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(authSvc, mailQueue),
		Users:     handler.NewUserHandler(authSvc, mailQueue),
		Contacts:  handler.NewContactHandler(contactSvc),
		AuthGuard: middleware.Auth(codec, authSvc),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
