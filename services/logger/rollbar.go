package logsvc

import (
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/user"
)

// RollbarLogger reports events to rollbar and forwards them to a base logger.
// Reporting is disabled when no rollbar token is configured.
type RollbarLogger struct {
	base core.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(base core.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.Log.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.Log.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{base: base}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, key/value pairs, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, []interface{}) {
	var usrSet bool
	report := make([]interface{}, 0, 2)
	report = append(report, msg)
	extras := make(map[string]interface{})
	fwd := make([]interface{}, 0, len(args))

	for i := 0; i < len(args); i++ {
		switch arg := args[i].(type) {
		case user.User:
			if !usrSet { // only set one User
				rollbar.SetPerson(arg.ID, arg.Name, arg.Email)
				usrSet = true
			}
			fwd = append(fwd, "user", arg.ID)
		case error:
			report = append(report, arg)
			fwd = append(fwd, "err", arg)
		case string:
			if i+1 < len(args) {
				extras[arg] = args[i+1]
				fwd = append(fwd, arg, args[i+1])
				i++
			}
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	if len(extras) > 0 {
		report = append(report, extras)
	}
	return report, fwd
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	report, fwd := l.prepare(msg, args)
	rollbar.Debug(report...)
	l.base.Debug(msg, fwd...)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	report, fwd := l.prepare(msg, args)
	rollbar.Info(report...)
	l.base.Info(msg, fwd...)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	report, fwd := l.prepare(msg, args)
	rollbar.Warning(report...)
	l.base.Warn(msg, fwd...)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	report, fwd := l.prepare(msg, args)
	rollbar.Error(report...)
	l.base.Error(msg, fwd...)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	report, fwd := l.prepare(msg, args)
	rollbar.Critical(report...)
	rollbar.Wait()
	l.base.Fatal(msg, fwd...)
}

// Sync waits for pending reports and flushes the base logger.
func (l RollbarLogger) Sync() {
	rollbar.Wait()
	if s, ok := l.base.(interface{ Sync() }); ok {
		s.Sync()
	}
}
