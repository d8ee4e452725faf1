package requisitions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberGeneratorFormat(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	gen := NewNumberGenerator(manila, 7)
	// 20:30 UTC on Jan 5 is already Jan 6 in Manila.
	number := gen.Next(time.Date(2026, 1, 5, 20, 30, 0, 0, time.UTC))
	assert.Regexp(t, `^MR-260106-\d{3}$`, number)
}

func TestNumberGeneratorIsDeterministicPerSeed(t *testing.T) {
	now := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	a := NewNumberGenerator(nil, 99)
	b := NewNumberGenerator(nil, 99)
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Next(now), b.Next(now))
	}
}
