package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/translens/translens/internal/observability"
)

func TestInitCLILogger(t *testing.T) {
	observability.InitCLILogger("translens-test", false)

	if observability.CLILogger == nil {
		t.Fatal("CLI logger should not be nil after initialization")
	}

	observability.CLILogger.Info("cli logger ready",
		zap.String("test", "value"))
}

func TestInitCLILoggerVerbose(t *testing.T) {
	observability.InitCLILogger("translens-test", true)

	if observability.CLILogger == nil {
		t.Fatal("CLI logger should not be nil after initialization")
	}

	observability.CLILogger.Debug("verbose mode active",
		zap.String("mode", "verbose"))
}

func TestInitServerLogger(t *testing.T) {
	observability.InitServerLogger("translens-test", "info")

	if observability.ServerLogger == nil {
		t.Fatal("Server logger should not be nil after initialization")
	}

	observability.ServerLogger.Info("server logger ready",
		zap.String("component", "test"),
		zap.Int("request_id", 123))
}

func TestStructuredProfileWithCorrelation(t *testing.T) {
	config := &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: "INFO",
		Service:      "correlation-test",
		Environment:  "test",
		Middleware: []logging.MiddlewareConfig{
			{
				Name:    "correlation",
				Enabled: true,
				Order:   100,
				Config:  make(map[string]any),
			},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:   "console",
				Format: "json",
				Console: &logging.ConsoleSinkConfig{
					Stream:   "stderr",
					Colorize: false,
				},
			},
		},
	}

	logger, err := logging.New(config)
	if err != nil {
		t.Fatalf("Failed to create structured logger: %v", err)
	}

	logger.Info("message with correlation",
		zap.String("feature", "correlation"))
}
