package main

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/lms/core"
)

// formatError renders err for the terminal.
func formatError(err error) string {
	var vErr *core.ValidationError
	if errors.As(err, &vErr) && len(vErr.Fields) > 0 {
		var b strings.Builder
		b.WriteString("error: invalid input")
		for _, fld := range vErr.Fields {
			b.WriteString("\n  " + fld.Field + ": " + fld.Error)
		}
		return b.String()
	}
	if core.IsStorageFailure(err) {
		return "error: your changes could not be saved (" + err.Error() + ")"
	}
	return "error: " + err.Error()
}
