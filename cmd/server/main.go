package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"mes_planner/internal/logging"
	"mes_planner/internal/planner"
	"mes_planner/internal/ws"
)

func main() {
	addr := pflag.String("addr", ":8080", "listen address")
	level := pflag.String("log-level", "info", "debug, info, warn or error")
	configDir := pflag.String("config-dir", "configs", "directory clients may load configs from")
	dataDir := pflag.String("data-dir", "data", "directory run data files must live in")
	outputDir := pflag.String("output-dir", "results", "directory run results must be written to")
	origins := pflag.StringSlice("allowed-origin", nil, "extra browser origin allowed to connect (repeatable)")
	pflag.Parse()

	log := logging.New(*level, os.Stderr)

	hub := ws.NewHub(log)
	bridge := ws.NewBridge(hub, log)
	runner := planner.NewRunner(log, bridge)
	handler := ws.NewHandler(hub, bridge, runner, log, ws.Options{
		ConfigDir:      *configDir,
		DataDir:        *dataDir,
		OutputDir:      *outputDir,
		AllowedOrigins: *origins,
	})

	srv := &http.Server{Addr: *addr, Handler: newMux(handler)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		handler.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().Str("addr", *addr).Msg("starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func newMux(wsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/ws", wsHandler)
	return mux
}
