package logger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the zap logger.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	Level       string
	Format      string
	Debug       bool

	SamplingInitial     int
	SamplingThereafter  int
	SamplingWindow      time.Duration
	IncludeCaller       bool
	IncludeStackOnError bool
}

// New builds a structured zap.Logger and registers lifecycle hooks.
func New(lc fx.Lifecycle, cfg Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Encoding = normalizeFormat(cfg.Format)
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stdout"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	options := []zap.Option{}
	if cfg.IncludeCaller {
		options = append(options, zap.AddCaller())
	}
	if cfg.IncludeStackOnError {
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	initial := cfg.SamplingInitial
	thereafter := cfg.SamplingThereafter
	window := cfg.SamplingWindow
	if initial == 0 {
		initial = 100
	}
	if thereafter == 0 {
		thereafter = 100
	}
	if window == 0 {
		window = time.Second
	}

	options = append(options, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewSamplerWithOptions(core, window, initial, thereafter)
	}))

	logger, err := zapCfg.Build(options...)
	if err != nil {
		return nil, err
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "settlement"
	}

	logger = logger.With(
		zap.String("service", serviceName),
		zap.String("env", strings.TrimSpace(cfg.Environment)),
		zap.String("version", strings.TrimSpace(cfg.Version)),
	)
	zap.ReplaceGlobals(logger)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				_ = ctx
				_ = logger.Sync()
				return nil
			},
		})
	}

	return logger, nil
}

func normalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		return "console"
	default:
		return "json"
	}
}

type requestIDKey struct{}

// WithRequestID stores the request correlation ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// FromContext returns the global logger enriched with request correlation
// fields found in ctx.
func FromContext(ctx context.Context) *zap.Logger {
	log := zap.L()
	if ctx == nil {
		return log
	}
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok && requestID != "" {
		log = log.With(zap.String("request_id", requestID))
	}
	return log
}
