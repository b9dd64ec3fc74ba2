package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serviceName tags every log line so aggregated logs stay attributable when
// several services share a sink.
const serviceName = "weather-api"

// NewLogger builds the process logger: JSON to stderr, ISO8601 timestamps,
// level from LOG_LEVEL (default info).
func NewLogger() (*zap.Logger, error) {
	return buildLogger(parseLogLevel(os.Getenv("LOG_LEVEL")), "stderr")
}

// buildLogger constructs the production logger writing to the given paths.
// Split out so tests can point output at a file.
func buildLogger(level zap.AtomicLevel, outputPaths ...string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = level
	config.OutputPaths = outputPaths

	return config.Build(zap.Fields(zap.String("service", serviceName)))
}

func parseLogLevel(s string) zap.AtomicLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "WARN":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "ERROR":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}
