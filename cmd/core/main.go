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

	"github.com/robfig/cron/v3"

	"github.com/flotilla-dev/flotilla/internal/alert"
	"github.com/flotilla-dev/flotilla/internal/api"
	"github.com/flotilla-dev/flotilla/internal/cache"
	"github.com/flotilla-dev/flotilla/internal/config"
	"github.com/flotilla-dev/flotilla/internal/core"
	"github.com/flotilla-dev/flotilla/internal/logging"
	"github.com/flotilla-dev/flotilla/internal/periphery"
	"github.com/flotilla-dev/flotilla/internal/store"
	"github.com/flotilla-dev/flotilla/internal/types"
)

var version = "dev"

func main() {
	cfg, err := config.LoadCore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogJSON, slog.LevelInfo)

	fmt.Println("Flotilla Core " + version)
	fmt.Println("=============================================")
	fmt.Printf("FLOTILLA_LISTEN_ADDR=%s\n", cfg.ListenAddr)
	fmt.Printf("FLOTILLA_DB_PATH=%s\n", cfg.DBPath)
	fmt.Printf("FLOTILLA_STATUS_POLL_INTERVAL=%s\n", cfg.StatusPollInterval)
	fmt.Printf("FLOTILLA_MONITORING_INTERVAL=%s\n", cfg.MonitoringInterval)
	fmt.Printf("FLOTILLA_STATS_RETENTION=%s\n", cfg.StatsRetention)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Actions interrupted by the previous shutdown never finalized;
	// surface them once so operators can tell what was cut short.
	if orphans, err := db.ListOrphanedUpdates(); err != nil {
		log.Error("failed to scan for orphaned updates", "error", err)
	} else {
		for _, u := range orphans {
			log.Warn("update never finalized, likely interrupted by restart",
				"update", u.ID, "operation", string(u.Operation), "started", u.StartTs)
		}
	}

	status := cache.NewStatusCache()
	state := core.NewState(cfg, log, db, status)
	alerts := alert.NewSender(db, log, cfg.RequestTimeout)
	poller := cache.NewPoller(cfg, db, status, alerts, func(server *types.Server) cache.AgentClient {
		return periphery.NewClient(server, cfg.PeripheryPasskey, cfg.PollTimeout)
	}, log)

	go poller.Run(ctx)

	// Historical stats are pruned once a day against the retention window.
	sched := cron.New()
	_, err = sched.AddFunc("@daily", func() {
		cutoff := time.Now().Add(-cfg.StatsRetention).UnixMilli()
		n, err := db.PruneStatsBefore(cutoff)
		if err != nil {
			log.Error("stats prune failed", "error", err)
			return
		}
		log.Info("pruned historical stats", "removed", n, "cutoff", cutoff)
	})
	if err != nil {
		log.Error("failed to schedule stats prune", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	srv := api.NewServer(state, log)
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("core started", "version", version, "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("api server error", "error", err)
		os.Exit(1)
	}

	log.Info("core shutdown complete")
}
