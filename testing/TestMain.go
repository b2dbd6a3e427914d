// Package testing flags the process as running under tests. Test files import
// it for its side effect so runtime wiring (metrics listeners, redis pings)
// stays disabled.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

const testModeEnv = "STATEMENTS_TEST_MODE"

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		if os.Getenv(testModeEnv) == "" {
			_ = os.Setenv(testModeEnv, "1")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be delegated to from packages that need a custom main.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
