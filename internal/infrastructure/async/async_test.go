package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOwner(t *testing.T) *Owner {
	t.Helper()
	o := NewOwner(zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = o.Close(ctx)
	})
	return o
}

func newTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	p, err := NewPool(size, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestOwner_RunsInPostOrder(t *testing.T) {
	o := newTestOwner(t)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, o.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, o.Sync(context.Background()))

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestOwner_PostFromOwner(t *testing.T) {
	o := newTestOwner(t)

	done := make(chan struct{})
	o.Post(func() {
		o.Post(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested post did not run")
	}
}

func TestOwner_SurvivesPanic(t *testing.T) {
	o := newTestOwner(t)

	ran := false
	o.Post(func() { panic("boom") })
	o.Post(func() { ran = true })
	require.NoError(t, o.Sync(context.Background()))
	assert.True(t, ran)
}

func TestOwner_CloseDrainsAndRejects(t *testing.T) {
	o := NewOwner(zap.NewNop())

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		o.Post(func() { count.Add(1) })
	}
	require.NoError(t, o.Close(context.Background()))

	assert.Equal(t, int32(10), count.Load())
	assert.False(t, o.Post(func() {}))
	assert.ErrorIs(t, o.Sync(context.Background()), ErrClosed)
}

func TestFuture_AwaitAndThen(t *testing.T) {
	o := newTestOwner(t)
	f := NewFuture[int](o)

	got := make(chan int, 2)
	f.Then(func(v int, err error) {
		assert.NoError(t, err)
		got <- v
	})

	go f.Complete(42, nil)

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// registered after completion
	f.Then(func(v int, _ error) { got <- v })
	assert.Equal(t, 42, <-got)
	assert.Equal(t, 42, <-got)

	assert.False(t, f.Complete(7, nil))
	v, _, ok := f.Result()
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestFuture_AwaitHonoursContext(t *testing.T) {
	f := NewFuture[string](newTestOwner(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, _, ok := f.Result()
	assert.False(t, ok)
}

func TestFuture_ResolvedRejected(t *testing.T) {
	o := newTestOwner(t)

	v, err := Resolved(o, "x").Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	boom := errors.New("boom")
	_, err = Rejected[int](o, boom).Await(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestLane_SerialAndOrdered(t *testing.T) {
	pool := newTestPool(t, 4)
	lane := NewLane("test", pool, zap.NewNop())

	var (
		active  atomic.Int32
		overlap atomic.Bool
		mu      sync.Mutex
		order   []int
		wg      sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		require.NoError(t, lane.Submit(func() {
			defer wg.Done()
			if active.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(100 * time.Microsecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			active.Add(-1)
		}))
	}
	wg.Wait()

	assert.False(t, overlap.Load())
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestLane_IndependentLanesRunConcurrently(t *testing.T) {
	pool := newTestPool(t, 2)
	a := NewLane("a", pool, zap.NewNop())
	b := NewLane("b", pool, zap.NewNop())

	release := make(chan struct{})
	started := make(chan string, 2)
	require.NoError(t, a.Submit(func() { started <- "a"; <-release }))
	require.NoError(t, b.Submit(func() { started <- "b"; <-release }))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case s := <-started:
			seen[s] = true
		case <-time.After(time.Second):
			t.Fatal("lanes did not start concurrently")
		}
	}
	close(release)
	assert.True(t, seen["a"] && seen["b"])
}

func TestLane_SubmitAfterRelease(t *testing.T) {
	pool, err := NewPool(1, zap.NewNop())
	require.NoError(t, err)
	pool.Release()

	lane := NewLane("closed", pool, zap.NewNop())
	assert.ErrorIs(t, lane.Submit(func() {}), ErrClosed)
	assert.Equal(t, 0, lane.Pending())
}

func TestRun_ResolvesBeforeHook(t *testing.T) {
	o := newTestOwner(t)
	lane := NewLane("run", newTestPool(t, 2), zap.NewNop())

	var f *Future[int]
	start := make(chan struct{})
	hooked := make(chan bool, 1)
	f = Run(lane, o, func() (int, error) {
		<-start
		return 5, nil
	}, func(v int) {
		_, _, ok := f.Result()
		hooked <- ok && v == 5
	})
	close(start)

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.True(t, <-hooked)
}

func TestRun_ErrorSkipsHook(t *testing.T) {
	o := newTestOwner(t)
	lane := NewLane("run", newTestPool(t, 1), zap.NewNop())

	boom := errors.New("boom")
	called := false
	f := Run(lane, o, func() (int, error) { return 0, boom }, func(int) { called = true })

	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, boom)
	require.NoError(t, o.Sync(context.Background()))
	assert.False(t, called)
}

func TestRun_PanicBecomesError(t *testing.T) {
	o := newTestOwner(t)
	lane := NewLane("run", newTestPool(t, 1), zap.NewNop())

	f := Run(lane, o, func() (int, error) { panic("kaboom") }, nil)
	_, err := f.Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}
