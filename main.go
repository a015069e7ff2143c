package main

import (
	stdlog "log"

	"github.com/joho/godotenv"

	"fapiao/cmd"
	"fapiao/internal/config"
	"fapiao/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		stdlog.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg := config.Load()
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}

	log := logger.WithComponent("main")
	log.Info().Msg("Starting Fapiao CLI application")

	cmd.Execute()

	log.Info().Msg("Fapiao CLI application shutdown")
}
