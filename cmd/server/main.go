package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/app"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	migrateOnly := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrateOnly {
		if errMigrate := app.Migrate(ctx, cfg); errMigrate != nil {
			log.Fatalf("migrate: %v", errMigrate)
		}
		return
	}

	if errRun := app.Run(ctx, cfg); errRun != nil {
		log.Fatalf("server: %v", errRun)
	}
}
