package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	var captured string
	SetLogger(func(format string, v ...interface{}) {
		captured = fmt.Sprintf(format, v...)
	})

	Logf("fix rejected: %s", "jump")
	if captured != "fix rejected: jump" {
		t.Errorf("captured %q", captured)
	}
}

func TestSetLogger_NilInstallsNoop(t *testing.T) {
	SetLogger(nil)
	// Must not panic.
	Logf("dropped %d", 1)
}
