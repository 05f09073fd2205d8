// Package providers contains dependency injection providers for the coloc server.
package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/colocapp/coloc-server/internal/config"
	"github.com/colocapp/coloc-server/internal/logger"
	"github.com/colocapp/coloc-server/internal/telemetry"
)

// ProvideConfig returns a provider that loads configuration from args,
// the environment and the .env file.
func ProvideConfig(args []string) do.Provider[*config.Config] {
	return func(i do.Injector) (*config.Config, error) {
		return config.LoadConfig(args)
	}
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	level, _ := logger.ParseLevel(cfg.Logger.Level)
	log := logger.New(logger.Config{
		Level:       level,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting coloc server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Storage.DataPath,
		"delete_policy", cfg.Flats.DeletePolicy,
	)

	return log, nil
}

// TelemetryHandle flushes pending spans on shutdown.
type TelemetryHandle struct {
	shutdown func(context.Context) error
}

// Shutdown implements do.Shutdownable.
func (h *TelemetryHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.shutdown(ctx)
}

// ProvideTelemetry installs the global tracer provider when an OTLP endpoint
// is configured.
func ProvideTelemetry(i do.Injector) (*TelemetryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	shutdown, err := telemetry.Setup(context.Background(), cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		return nil, err
	}

	if cfg.Telemetry.Endpoint != "" {
		log.Info("Tracing enabled", "endpoint", cfg.Telemetry.Endpoint)
	}

	return &TelemetryHandle{shutdown: shutdown}, nil
}
