package logsvc

import "github.com/trezcool/lms/core"

// NopLogger discards everything. Used by tests and the CLI's quiet mode.
type NopLogger struct{}

var _ core.Logger = (*NopLogger)(nil)

func NewNop() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...interface{}) {}
func (*NopLogger) Info(string, ...interface{})  {}
func (*NopLogger) Warn(string, ...interface{})  {}
func (*NopLogger) Error(string, ...interface{}) {}
func (*NopLogger) Fatal(string, ...interface{}) {}
