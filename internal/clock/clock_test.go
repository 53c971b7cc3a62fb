package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual_NeverMovesBackwards(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	c := NewManual(start)

	c.Advance(-time.Hour)
	assert.Equal(t, start, c.Now())

	c.Set(start.Add(-time.Minute))
	assert.Equal(t, start, c.Now())

	c.Advance(48 * time.Hour)
	assert.Equal(t, start.Unix()+2*86400, Unix(c))

	c.Set(start.Add(72 * time.Hour))
	assert.Equal(t, start.Unix()+3*86400, Unix(c))
}
