package log

import (
	"log"
	"os"
	"path/filepath"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger installs the global zap logger. The JSON file sink is skipped
// when path is empty and sentry when sentryDsn is.
func NewLogger(path string, debug bool, sentryDsn, env string) {
	pe := zap.NewProductionEncoderConfig()
	pe.EncodeTime = zapcore.ISO8601TimeEncoder
	pe.MessageKey = "message"
	pe.TimeKey = "time"
	fileEncoder := zapcore.NewJSONEncoder(pe)

	pe.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(pe)

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(colorable.NewColorableStdout()), level),
	}

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			log.Fatal(err)
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatal(err)
		}
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(f), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.Fields(zap.String("env", env)))
	defer logger.Sync()

	if sentryDsn != "" {
		logger = attachSentry(logger, sentryDsn, env)
	}

	zap.ReplaceGlobals(logger)
}

// Logger is the printf-style logger expected by the elastic and amqp clients.
type Logger interface {
	Printf(format string, v ...interface{})
}

type zapPrintf struct {
	component string
}

// NewPrintfLogger adapts the global zap logger to Logger at debug level.
func NewPrintfLogger(component string) Logger {
	return zapPrintf{component}
}

func (l zapPrintf) Printf(format string, v ...interface{}) {
	zap.S().Debugf(l.component+": "+format, v...)
}

// attachSentry reports errors to sentry with info breadcrumbs.
func attachSentry(log *zap.Logger, dsn, env string) *zap.Logger {
	cfg := zapsentry.Configuration{
		Level:             zapcore.ErrorLevel,
		EnableBreadcrumbs: true,
		BreadcrumbLevel:   zapcore.InfoLevel,
		Tags: map[string]string{
			"component":   "marketplace",
			"environment": env,
		},
	}
	core, err := zapsentry.NewCore(cfg, zapsentry.NewSentryClientFromDSN(dsn))

	// breadcrumbs need an explicit scope
	log = log.With(zapsentry.NewScope())

	// on error zapsentry returns a noop core, safe to attach
	if err != nil {
		log.Warn("failed to init zap", zap.Error(err))
	}
	return zapsentry.AttachCoreToLogger(core, log)
}
