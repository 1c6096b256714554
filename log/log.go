package log

import (
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogEnvironment represents the possible log environments.
type LogEnvironment string

const (
	// EnvironmentProduction production log environment.
	EnvironmentProduction = LogEnvironment("production")
	// EnvironmentDevelopment development log environment.
	EnvironmentDevelopment = LogEnvironment("development")
)

// Logger is a wrapper providing logging facilities.
type Logger struct {
	x *zap.SugaredLogger
}

// root logger. Used by the package-level functions. It's initialized with a
// default development config so logging works before Init is called.
var log atomic.Pointer[Logger]

func getDefaultLog() *Logger {
	l := log.Load()
	if l != nil {
		return l
	}
	// default level: debug
	zapLogger, err := NewLogger(Config{
		Environment: EnvironmentDevelopment,
		Level:       "debug",
		Outputs:     []string{"stderr"},
	})
	if err != nil {
		panic(err)
	}
	log.Store(&Logger{x: zapLogger})
	return log.Load()
}

// Init the logger with defined level. outputs defines the outputs where the
// logs will be sent. By default outputs contains "stdout", which prints the
// logs at the output of the process. To add a log file as output, the path
// of the log file can be added for example slog.Outputs =
// []string{"stdout", "log.txt"}
func Init(cfg Config) {
	zapLogger, err := NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	log.Store(&Logger{x: zapLogger})
}

// NewLogger creates a zap logger according to the given configuration.
func NewLogger(cfg Config) (*zap.SugaredLogger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("error on setting log level: %s", err)
	}

	var zapCfg zap.Config
	switch cfg.Environment {
	case EnvironmentProduction:
		zapCfg = zap.NewProductionConfig()
	default:
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = level
	zapCfg.OutputPaths = cfg.Outputs
	zapCfg.InitialFields = map[string]interface{}{
		"pid": os.Getpid(),
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	defer logger.Sync() //nolint:errcheck

	// skip 2 callers: one for our wrapper methods and one for the package functions
	withOptions := logger.WithOptions(zap.AddCallerSkip(2)) //nolint:gomnd
	return withOptions.Sugar(), nil
}

// WithFields returns a new Logger (derived from the root one) with additional
// fields added to every subsequent log entry.
func WithFields(keyValuePairs ...interface{}) *Logger {
	return getDefaultLog().WithFields(keyValuePairs...)
}

// WithFields returns a new Logger with additional fields.
func (l *Logger) WithFields(keyValuePairs ...interface{}) *Logger {
	return &Logger{
		x: l.x.With(keyValuePairs...),
	}
}

// Debug calls log.Debug on the root Logger.
func Debug(args ...interface{}) { getDefaultLog().Debug(args...) }

// Info calls log.Info on the root Logger.
func Info(args ...interface{}) { getDefaultLog().Info(args...) }

// Warn calls log.Warn on the root Logger.
func Warn(args ...interface{}) { getDefaultLog().Warn(args...) }

// Error calls log.Error on the root Logger.
func Error(args ...interface{}) { getDefaultLog().Error(args...) }

// Fatal calls log.Fatal on the root Logger, then os.Exit(1).
func Fatal(args ...interface{}) { getDefaultLog().Fatal(args...) }

// Debugf calls log.Debugf on the root Logger.
func Debugf(template string, args ...interface{}) { getDefaultLog().Debugf(template, args...) }

// Infof calls log.Infof on the root Logger.
func Infof(template string, args ...interface{}) { getDefaultLog().Infof(template, args...) }

// Warnf calls log.Warnf on the root Logger.
func Warnf(template string, args ...interface{}) { getDefaultLog().Warnf(template, args...) }

// Errorf calls log.Errorf on the root Logger.
func Errorf(template string, args ...interface{}) { getDefaultLog().Errorf(template, args...) }

// Fatalf calls log.Fatalf on the root Logger, then os.Exit(1).
func Fatalf(template string, args ...interface{}) { getDefaultLog().Fatalf(template, args...) }

// Debug uses zap to log at debug level.
func (l *Logger) Debug(args ...interface{}) { l.x.Debugln(args...) }

// Info uses zap to log at info level.
func (l *Logger) Info(args ...interface{}) { l.x.Infoln(args...) }

// Warn uses zap to log at warn level.
func (l *Logger) Warn(args ...interface{}) { l.x.Warnln(args...) }

// Error uses zap to log at error level.
func (l *Logger) Error(args ...interface{}) { l.x.Errorln(args...) }

// Fatal uses zap to log at fatal level, then calls os.Exit(1).
func (l *Logger) Fatal(args ...interface{}) { l.x.Fatalln(args...) }

// Debugf uses zap to log at debug level with format.
func (l *Logger) Debugf(template string, args ...interface{}) { l.x.Debugf(template, args...) }

// Infof uses zap to log at info level with format.
func (l *Logger) Infof(template string, args ...interface{}) { l.x.Infof(template, args...) }

// Warnf uses zap to log at warn level with format.
func (l *Logger) Warnf(template string, args ...interface{}) { l.x.Warnf(template, args...) }

// Errorf uses zap to log at error level with format.
func (l *Logger) Errorf(template string, args ...interface{}) { l.x.Errorf(template, args...) }

// Fatalf uses zap to log at fatal level with format, then calls os.Exit(1).
func (l *Logger) Fatalf(template string, args ...interface{}) { l.x.Fatalf(template, args...) }
