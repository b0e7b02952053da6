package zap

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const callerSkipFrames = 1

// Environment controls the baseline logger profile.
type Environment string

const (
	EnvironmentProduction  Environment = "production"
	EnvironmentStaging     Environment = "staging"
	EnvironmentDevelopment Environment = "development"
	EnvironmentLocal       Environment = "local"
)

// Rotation policy for file output.
const (
	defaultMaxFileSizeMB = 10
	defaultMaxBackups    = 5
	defaultMaxAgeDays    = 14
)

// Config contains all required logger initialization inputs.
type Config struct {
	Environment     Environment
	Level           string
	OTelLibraryName string
	// FilePath, when set, sends entries to a size-rotated file instead of stderr.
	FilePath string
}

func (c Config) validate() error {
	if c.OTelLibraryName == "" {
		return fmt.Errorf("OTelLibraryName is required")
	}

	switch c.Environment {
	case EnvironmentProduction, EnvironmentStaging, EnvironmentDevelopment, EnvironmentLocal:
		return nil
	default:
		return fmt.Errorf("invalid environment %q", c.Environment)
	}
}

// New creates a structured logger and returns it with a runtime-adjustable level handle.
// Entries always reach the OpenTelemetry log bridge; locally they go to stderr, or to a
// rotated file when FilePath is set.
func New(cfg Config) (*Logger, zap.AtomicLevel, error) {
	if err := cfg.validate(); err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("invalid zap config: %w", err)
	}

	level, err := resolveLevel(cfg)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}

	zcfg := configFor(cfg.Environment)
	zcfg.Level = level
	zcfg.DisableStacktrace = true

	filePath := strings.TrimSpace(cfg.FilePath)
	bridge := otelzap.NewCore(cfg.OTelLibraryName)

	wrap := zap.WrapCore(func(local zapcore.Core) zapcore.Core {
		if filePath != "" {
			local = zapcore.NewCore(
				zapcore.NewJSONEncoder(zcfg.EncoderConfig),
				zapcore.AddSync(newRotatingWriter(filePath)),
				level,
			)
		}

		return zapcore.NewTee(local, bridge)
	})

	built, err := zcfg.Build(zap.AddCallerSkip(callerSkipFrames), wrap)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("failed to build logger: %w", err)
	}

	return &Logger{logger: built, atomicLevel: level}, level, nil
}

func newRotatingWriter(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    defaultMaxFileSizeMB,
		MaxBackups: defaultMaxBackups,
		MaxAge:     defaultMaxAgeDays,
		Compress:   true,
	}
}

func (e Environment) verbose() bool {
	return e == EnvironmentDevelopment || e == EnvironmentLocal
}

// resolveLevel honors an explicit level, else debug for verbose environments and info elsewhere.
func resolveLevel(cfg Config) (zap.AtomicLevel, error) {
	raw := strings.TrimSpace(cfg.Level)
	if raw == "" {
		if cfg.Environment.verbose() {
			return zap.NewAtomicLevelAt(zapcore.DebugLevel), nil
		}

		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}

	level, err := zap.ParseAtomicLevel(raw)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid level %q: %w", cfg.Level, err)
	}

	return level, nil
}

// configFor returns a JSON config with capitalized levels; verbose environments get
// zap's development defaults.
func configFor(env Environment) zap.Config {
	zcfg := zap.NewProductionConfig()
	if env.verbose() {
		zcfg = zap.NewDevelopmentConfig()
	}

	zcfg.Encoding = "json"
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return zcfg
}
