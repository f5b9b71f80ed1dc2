package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sammcj/goose/internal/infrastructure/config"
	"github.com/sammcj/goose/internal/infrastructure/server"
)

func main() {
	port := flag.String("port", "", "server port (overrides config)")
	agentAddr := flag.String("agent", "", "agent backend address (overrides config)")
	configPath := flag.String("config", "", "path to YAML config file")
	dev := flag.Bool("dev", false, "development mode (debug logging)")
	flag.Parse()

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrDefault()
	}

	if *port != "" {
		cfg.Server.Port = *port
	}
	if *agentAddr != "" {
		cfg.Agent.Address = *agentAddr
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
