package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedClock(t *testing.T) {
	start := time.Date(2025, 3, 14, 23, 59, 0, 0, time.UTC)
	c := NewFixedClock(start)
	assert.Equal(t, start, c.Now())

	c.Advance(2 * time.Minute)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 1, 0, 0, time.UTC), c.Now())
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), Today(c))
}

func TestDateOnlyKeepsLocation(t *testing.T) {
	loc := time.FixedZone("school", -5*3600)
	d := DateOnly(time.Date(2025, 9, 1, 22, 15, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, loc), d)
	assert.Equal(t, "2025-09-01", FormatDate(d))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "28/02/2025", "2025-02-30", "2025-2-3"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestSystemClockLocation(t *testing.T) {
	assert.Equal(t, time.UTC, NewSystemClock(nil).Now().Location())
	loc := time.FixedZone("x", 3600)
	assert.Equal(t, loc, NewSystemClock(loc).Now().Location())
}
