package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID_Monotonic(t *testing.T) {
	now := time.Now()

	prev := NewULID(now)
	for i := 0; i < 1000; i++ {
		next := NewULID(now)
		require.Greater(t, next, prev, "ids within one millisecond must grow")
		prev = next
	}
}

func TestNewULID_TimeOrder(t *testing.T) {
	earlier := NewULID(time.UnixMilli(1_700_000_000_000))
	later := NewULID(time.UnixMilli(1_700_000_000_001))

	assert.Less(t, earlier, later)
	assert.Len(t, earlier, 26)
	assert.Equal(t, int64(1_700_000_000_000), Time(earlier).UnixMilli())
}

func TestTime_Invalid(t *testing.T) {
	assert.True(t, Time("not-a-ulid").IsZero())
}

func TestNewDeviceID(t *testing.T) {
	a := NewDeviceID()
	b := NewDeviceID()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
