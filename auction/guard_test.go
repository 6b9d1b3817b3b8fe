package auction

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardSet_AcquireAndRelease(t *testing.T) {
	g := NewGuardSet()

	release, err := g.TryAcquire(1, OpBidding)
	require.NoError(t, err)

	kind, held := g.Holder(1)
	assert.True(t, held)
	assert.Equal(t, OpBidding, kind)

	// Any second operation on the channel is refused, naming the holder.
	_, err = g.TryAcquire(1, OpEnding)
	require.Error(t, err)
	assert.True(t, IsBusy(err))
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, OpBidding, lerr.Blocking)

	// Other channels are unaffected.
	release2, err := g.TryAcquire(2, OpEnding)
	require.NoError(t, err)
	release2()

	release()
	_, held = g.Holder(1)
	assert.False(t, held)

	// Release is idempotent, a second call must not free someone else's
	// guard.
	release3, err := g.TryAcquire(1, OpRollback)
	require.NoError(t, err)
	release()
	_, held = g.Holder(1)
	assert.True(t, held)
	release3()
}

func TestGuardSet_ConcurrentAcquire(t *testing.T) {
	g := NewGuardSet()

	const attempts = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.TryAcquire(7, OpBidding)
			if err != nil {
				assert.True(t, IsBusy(err))
				return
			}
			mu.Lock()
			acquired++
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	// At least one acquisition succeeds and the guard ends up free.
	assert.Greater(t, acquired, 0)
	_, held := g.Holder(7)
	assert.False(t, held)
}

func TestBusyReasonNamesBlockingOperation(t *testing.T) {
	assert.Contains(t, OpBidding.BusyReason(), "bid")
	assert.Contains(t, OpEnding.BusyReason(), "ended")
	assert.Contains(t, OpRollback.BusyReason(), "rollback")
	assert.Contains(t, OpExtend.BusyReason(), "end time")
}
