// internal/monitoring/logger_test.go
package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger_Capture(t *testing.T) {
	orig := Logf
	defer func() { Logf = orig }()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})

	Logf("[acquire] parity errors=%d", 3)

	assert.Equal(t, []string{"[acquire] parity errors=3"}, got)
}

func TestSetLogger_NilMutes(t *testing.T) {
	orig := Logf
	defer func() { Logf = orig }()

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("dropped %d", 1) })
}
