package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectTestModeReadsFlag(t *testing.T) {
	t.Cleanup(detectTestMode)

	t.Setenv(testModeEnv, "1")
	detectTestMode()
	assert.True(t, testModeFlag.Load())

	t.Setenv(testModeEnv, "0")
	detectTestMode()
	assert.False(t, testModeFlag.Load())
}

func TestInTestModeCachesFirstRead(t *testing.T) {
	first := InTestMode()
	t.Setenv(testModeEnv, "flipped")
	assert.Equal(t, first, InTestMode(), "the flag is read once per process")
}
