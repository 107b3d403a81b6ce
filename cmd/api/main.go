package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"bible-guessr-api/core"
)

func main() {
	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()
	cache := core.NewCache(redisClient, time.Duration(cfg.VerseCacheTTL)*time.Second)

	userRepo := core.NewPgUserRepository(db)
	verseRepo := core.NewPgVerseRepository(db)
	tokens := core.NewTokensFromConfig(cfg)
	authService := core.NewAuthService(userRepo, tokens)

	if cfg.BibleJSONPath != "" {
		if err := core.PopulateVerses(ctx, verseRepo, cfg.BibleJSONPath); err != nil {
			log.Fatalf("verse import failed: %v", err)
		}
	}

	router := core.NewRouter(cfg, authService, userRepo, verseRepo, cache, db)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
