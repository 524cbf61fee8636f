package logsvc

import (
	"testing"

	"github.com/kat-co/vala"
	"github.com/stretchr/testify/assert"
)

// constructors check their logger with vala; it must accept the nop logger.
func TestNewNop_PassesNilCheck(t *testing.T) {
	assert.NotPanics(t, func() {
		vala.BeginValidation().Validate(
			vala.IsNotNil(NewNop(), "log"),
		).CheckAndPanic()
	})
}
