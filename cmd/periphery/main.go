package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flotilla-dev/flotilla/internal/agent"
	"github.com/flotilla-dev/flotilla/internal/config"
	"github.com/flotilla-dev/flotilla/internal/logging"
)

var version = "dev"

func main() {
	agent.Version = version

	cfg := config.LoadPeriphery()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogJSON, slog.LevelInfo)

	fmt.Println("Flotilla Periphery " + version)
	fmt.Println("=============================================")
	fmt.Printf("PERIPHERY_LISTEN_ADDR=%s\n", cfg.ListenAddr)
	fmt.Printf("PERIPHERY_DOCKER_SOCK=%s\n", cfg.DockerSock)
	fmt.Printf("PERIPHERY_BUILD_DIR=%s\n", cfg.BuildDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	docker, err := agent.NewDocker(cfg.DockerSock)
	if err != nil {
		log.Error("failed to create docker client", "error", err)
		os.Exit(1)
	}
	defer docker.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := docker.Ping(pingCtx); err != nil {
		pingCancel()
		log.Error("docker engine unreachable", "sock", cfg.DockerSock, "error", err)
		os.Exit(1)
	}
	pingCancel()

	a := agent.New(cfg, log, docker)
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = a.Shutdown(shutdownCtx)
	}()

	log.Info("periphery started", "version", version)
	if err := a.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("agent server error", "error", err)
		os.Exit(1)
	}

	log.Info("periphery shutdown complete")
}
