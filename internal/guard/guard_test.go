package guard

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-ledger/internal/domain"
)

func TestGuard_RejectsReentry(t *testing.T) {
	g := New("buy")

	release, err := g.Enter()
	require.NoError(t, err)
	assert.True(t, g.Busy())

	_, err = g.Enter()
	assert.ErrorIs(t, err, domain.ErrReentrant)
	assert.Contains(t, err.Error(), "buy")

	release()
	assert.False(t, g.Busy())

	release, err = g.Enter()
	require.NoError(t, err)
	release()
}

func TestGuard_OneWinner(t *testing.T) {
	var g Guard
	var wins atomic.Int32
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := g.Enter(); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	// Nobody released, so exactly one entry succeeded.
	assert.Equal(t, int32(1), wins.Load())
}
