package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// consume runs the consumer in the background and forwards results
func consume(t *testing.T, d *Dispatcher, handle func(Result)) (<-chan Result, func()) {
	t.Helper()
	out := make(chan Result, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Consume(ctx, func(r Result) {
			if handle != nil {
				handle(r)
			}
			out <- r
		})
	}()
	return out, func() {
		cancel()
		<-done
	}
}

func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task result")
		return Result{}
	}
}

func TestSubmitWithStartedHookPrecedesResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(4)
	defer d.Close()

	var mu sync.Mutex
	var order []string
	note := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}
	results, stop := consume(t, d, func(Result) { note("result") })
	defer stop()

	var hookRun uuid.UUID
	run, started := d.SubmitWith(DisplayInfo, func(ctx context.Context) (any, error) {
		return "1080x2400", nil
	}, func(r uuid.UUID) {
		hookRun = r
		note("started")
	})
	require.True(t, started)
	waitResult(t, results)

	assert.Equal(t, run, hookRun)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"started", "result"}, order)
}

func TestSubmitDeliversResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(4)
	defer d.Close()
	results, stop := consume(t, d, nil)
	defer stop()

	run, started := d.Submit(BatteryInfo, func(ctx context.Context) (any, error) {
		return "level: 90", nil
	})
	require.True(t, started)
	assert.NotEqual(t, uuid.Nil, run)

	r := waitResult(t, results)
	assert.Equal(t, BatteryInfo, r.ID)
	assert.Equal(t, run, r.RunID)
	assert.Equal(t, "level: 90", r.Value)
	assert.NoError(t, r.Err)
	assert.GreaterOrEqual(t, r.Duration(), time.Duration(0))

	assert.Eventually(t, func() bool { return !d.Loading(BatteryInfo) }, time.Second, 5*time.Millisecond)
}

func TestSubmitSkipsLoadingID(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(4)
	defer d.Close()
	results, stop := consume(t, d, nil)
	defer stop()

	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	fn := func(ctx context.Context) (any, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return nil, nil
	}

	first, ok := d.Submit(AppList, fn)
	require.True(t, ok)
	second, ok := d.Submit(AppList, fn)
	assert.False(t, ok)
	assert.Equal(t, first, second)
	assert.True(t, d.Loading(AppList))
	assert.True(t, d.Busy())

	// a different id is independent
	_, ok = d.Submit(DisableAppList, func(ctx context.Context) (any, error) { return nil, nil })
	assert.True(t, ok)

	close(release)
	waitResult(t, results)
	waitResult(t, results)

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
	assert.Eventually(t, func() bool { return !d.Busy() }, time.Second, 5*time.Millisecond)
}

func TestLoadingHeldUntilHandled(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(1)
	defer d.Close()

	var loadingDuringHandle bool
	results, stop := consume(t, d, func(r Result) {
		loadingDuringHandle = d.Loading(r.ID)
		st := d.State()
		assert.True(t, st.Busy)
		assert.True(t, st.Loading[string(r.ID)])
	})
	defer stop()

	d.Submit(Identifiers, func(ctx context.Context) (any, error) { return nil, errors.New("boom") })
	r := waitResult(t, results)
	assert.EqualError(t, r.Err, "boom")
	assert.True(t, loadingDuringHandle)
	assert.Eventually(t, func() bool { return !d.Loading(Identifiers) }, time.Second, 5*time.Millisecond)
}

func TestCloseCancelsRunningTasks(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(1)
	started := make(chan struct{})
	d.Submit(DisplayInfo, func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	<-started

	d.Close()
	assert.False(t, d.Busy())

	_, ok := d.Submit(DisplayInfo, func(ctx context.Context) (any, error) { return nil, nil })
	assert.False(t, ok)

	err := d.Consume(context.Background(), func(Result) {})
	assert.ErrorIs(t, err, ErrClosed)

	d.Close()
}

func TestConsumeStopsOnContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(1)
	defer d.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Consume(ctx, func(Result) {}), context.Canceled)
}
