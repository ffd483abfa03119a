package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crop-advisor/internal/cfg"
	"crop-advisor/internal/common"
	"crop-advisor/internal/metrics"
	"crop-advisor/internal/ml"
	"crop-advisor/internal/storage"

	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	common.SetupLogging(c.LogLevel, c.LogFormat)

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	// A missing or broken artifact leaves the service running; every
	// prediction then reports the model as unavailable.
	model := storage.LoadForServing(c.ModelPath)
	predictor := ml.NewPredictor(model, mw)

	server := ml.NewModelServer(predictor, ml.ServerOptions{
		Addr:           c.Addr(),
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		AllowedOrigins: c.AllowedOrigins,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("model server failed")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown model server")
	}
	log.Info().Msg("Shutdown complete")
}
