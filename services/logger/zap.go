package logsvc

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/lms/core"
)

var redactedKeys = map[string]bool{"password": true, "credential": true, "token": true}

// ZapLogger writes structured logs to stderr.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ core.Logger = (*ZapLogger)(nil)

// NewZapLogger builds a logger for mode "prod" (JSON, info and up) or "dev" (console, debug and up).
func NewZapLogger(mode string, debug bool) (*ZapLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: zl.Sugar()}, nil
}

func (l *ZapLogger) Sync() {
	_ = l.sugar.Sync()
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugw(msg, sanitize(args)...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.sugar.Infow(msg, sanitize(args)...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.sugar.Warnw(msg, sanitize(args)...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.sugar.Errorw(msg, sanitize(args)...) }
func (l *ZapLogger) Fatal(msg string, args ...interface{}) { l.sugar.Fatalw(msg, sanitize(args)...) }

// sanitize turns args into key/value pairs: a lone error becomes "err", secrets are redacted.
func sanitize(args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args))
	for i := 0; i < len(args); i++ {
		if err, ok := args[i].(error); ok {
			out = append(out, "err", err.Error())
			continue
		}
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			out = append(out, "extra", key)
			break
		}
		val := args[i+1]
		if redactedKeys[strings.ToLower(key)] {
			val = "[redacted]"
		}
		out = append(out, key, val)
		i++
	}
	return out
}
