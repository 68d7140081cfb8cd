package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nais/liberator/pkg/conftools"
	log "github.com/sirupsen/logrus"

	"github.com/nais/stagehook/pkg/logging"
	"github.com/nais/stagehook/pkg/stagehook"
	"github.com/nais/stagehook/pkg/stagehook/api"
	"github.com/nais/stagehook/pkg/stagehook/config"
	"github.com/nais/stagehook/pkg/telemetry"
	"github.com/nais/stagehook/pkg/version"
)

var maskedConfig = []string{
	config.EventKeys,
}

const shutdownTimeout = 30 * time.Second

func run() error {
	cfg := config.Initialize()
	err := conftools.Load(cfg)
	if err != nil {
		return err
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	// Welcome
	log.Infof("stagehook %s", version.Version())
	ts, err := version.BuildTime()
	if err == nil {
		log.Infof("This version was built %s", ts.Local())
	}

	for _, line := range conftools.Format(maskedConfig) {
		log.Info(line)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.OtelEndpoint) > 0 {
		tracerProvider, err := telemetry.New(ctx, "stagehook", cfg.OtelEndpoint)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				log.Errorf("Flushing traces: %s", err)
			}
		}()
		log.Infof("Exporting traces to %s", cfg.OtelEndpoint)
	}

	plugin, err := stagehook.Initialize(ctx, cfg, stagehook.Options{
		Log: log.StandardLogger(),
	})
	if err != nil {
		return err
	}

	router := api.New(api.Config{
		Processor:   plugin,
		EventKeys:   cfg.EventKeys,
		MetricsPath: cfg.MetricsPath,
	})

	server := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: router,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err)
			os.Exit(114)
		}
	}()

	log.Infof("Ready to accept pipeline events on %s", cfg.ListenAddress)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals

	log.Infof("Received signal %s (%d), exiting...", sig, sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	err = plugin.Shutdown(shutdownCtx)
	if err != nil {
		log.Error(err)
	}

	return server.Shutdown(shutdownCtx)
}

func main() {
	err := run()
	if err != nil {
		log.Errorf("Fatal error: %s", err)
		os.Exit(1)
	}
}
