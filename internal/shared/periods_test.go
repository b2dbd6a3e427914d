package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodKey(t *testing.T) {
	assert.Equal(t, "2024-01", PeriodKey("2024-01", ""))
	assert.Equal(t, "2024-01", PeriodKey("2024-01", "2024-01"))
	assert.Equal(t, "2024-01_2024-12", PeriodKey("2024-01", "2024-12"))
}

func TestSplitPeriodKey(t *testing.T) {
	start, end, err := SplitPeriodKey("2024-01_2024-12")
	require.NoError(t, err)
	assert.Equal(t, "2024-01", start)
	assert.Equal(t, "2024-12", end)

	start, end, err = SplitPeriodKey("2024-03")
	require.NoError(t, err)
	assert.Equal(t, start, end)

	for _, bad := range []string{"", "2024-13", "2024-12_2024-01", "2024-01_", "jan"} {
		_, _, err := SplitPeriodKey(bad)
		assert.True(t, errors.Is(err, ErrInvalidPeriod), bad)
	}
}
