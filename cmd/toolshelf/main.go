package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/toolshelf/toolshelf/internal/app"
	"github.com/toolshelf/toolshelf/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to the configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flag.Arg(0) == "migrate" {
		if err := app.Migrate(ctx, *configPath); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Info("migrations applied")
		return
	}

	if err := app.Run(ctx, *configPath); err != nil {
		log.Fatalf("server: %v", err)
	}
}
