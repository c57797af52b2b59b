package lockpkg

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameKey(t *testing.T) {
	r := New()
	ctx := context.Background()

	const (
		workers    = 50
		increments = 200
	)

	var (
		wg      sync.WaitGroup
		counter int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < increments; j++ {
				require.NoError(t, r.Lock(ctx, 1))
				counter++
				r.Unlock(1)
			}
		}()
	}

	wg.Wait()

	require.Equal(t, workers*increments, counter)
	require.Equal(t, 1, r.Len())
}

func TestLockCreatesOneHandlePerKey(t *testing.T) {
	r := New()
	ctx := context.Background()

	const workers = 100

	var wg sync.WaitGroup

	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			<-start

			require.NoError(t, r.Lock(ctx, 42))
			r.Unlock(42)
		}()
	}

	close(start)
	wg.Wait()

	require.Equal(t, 1, r.Len())
}

func TestLockDistinctKeysDoNotBlock(t *testing.T) {
	r := New()
	ctx := context.Background()

	require.NoError(t, r.Lock(ctx, 1))
	defer r.Unlock(1)

	done := make(chan struct{})

	go func() {
		defer close(done)

		require.NoError(t, r.Lock(ctx, 2))
		r.Unlock(2)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on a different key blocked behind key 1")
	}
}

func TestLockHonorsContext(t *testing.T) {
	r := New()

	require.NoError(t, r.Lock(context.Background(), 7))
	defer r.Unlock(7)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Lock(ctx, 7)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestForgetDropsEntryAfterWaitersDrain(t *testing.T) {
	r := New()
	ctx := context.Background()

	require.NoError(t, r.Lock(ctx, 9))

	waiterHolds := make(chan struct{})

	go func() {
		// Blocks until the holder below unlocks; must still get its
		// turn even though the entry was forgotten meanwhile.
		if err := r.Lock(ctx, 9); err != nil {
			t.Error(err)
			return
		}
		close(waiterHolds)
		r.Unlock(9)
	}()

	// Give the waiter time to block on the handle.
	time.Sleep(50 * time.Millisecond)

	r.Forget(9)
	require.Equal(t, 1, r.Len())

	r.Unlock(9)

	select {
	case <-waiterHolds:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the forgotten lock")
	}

	require.Eventually(t, func() bool { return r.Len() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestUnlockOfUnlockedKeyPanics(t *testing.T) {
	r := New()

	require.NoError(t, r.Lock(context.Background(), 3))
	r.Unlock(3)

	require.Panics(t, func() { r.Unlock(3) })
	require.Panics(t, func() { r.Unlock(4) })
}
