package main

import (
	"context"
	"flag"
	"log"

	"suki-be/internal/config"
	"suki-be/internal/db"
	"suki-be/internal/logger"
)

func main() {
	mode := flag.String("mode", "up", "migration mode: up or down")
	steps := flag.Int("steps", 1, "number of migrations to roll back in down mode")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database, err := db.InitDB(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := run(database, *mode, *steps); err != nil {
		log.Fatal(err)
	}
}
