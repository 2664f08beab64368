// Package tasks runs slow device queries off the UI thread. Each task id runs
// at most once at a time; finished results are delivered to a single consumer
// which applies them to app state before the id is released.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"droidview/pkg/logging"
	"droidview/pkg/types"

	"github.com/google/uuid"
)

// ID names a kind of background task
type ID string

const (
	Identifiers    ID = "imei"
	DisplayInfo    ID = "display_info"
	BatteryInfo    ID = "battery_info"
	AppList        ID = "app_list"
	DisableAppList ID = "disable_app_list"
)

// ErrClosed is returned by Consume once the dispatcher is closed
var ErrClosed = errors.New("tasks: dispatcher closed")

// Func is the work of one task
type Func func(ctx context.Context) (any, error)

// Result is what a finished task hands to the consumer
type Result struct {
	ID       ID
	RunID    uuid.UUID
	Value    any
	Err      error
	Started  time.Time
	Finished time.Time
}

// Duration of the run
func (r Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

type Dispatcher struct {
	mu      sync.Mutex
	loading map[ID]uuid.UUID
	closed  bool

	results chan Result
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New returns a dispatcher whose result channel holds buffer entries
func New(buffer int) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		loading: make(map[ID]uuid.UUID),
		results: make(chan Result, buffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit starts fn under id unless that id is already loading. The returned
// run id identifies the result later handed to the consumer.
func (d *Dispatcher) Submit(id ID, fn Func) (uuid.UUID, bool) {
	return d.SubmitWith(id, fn, nil)
}

// SubmitWith is Submit with a hook that runs once the task is registered and
// before fn starts, so it always precedes the task's result.
func (d *Dispatcher) SubmitWith(id ID, fn Func, started func(run uuid.UUID)) (uuid.UUID, bool) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return uuid.Nil, false
	}
	if run, busy := d.loading[id]; busy {
		d.mu.Unlock()
		logging.LogDebug("tasks").Str("task", string(id)).Str("run", run.String()).Msg("Task already loading, skipped")
		return run, false
	}
	run := uuid.New()
	d.loading[id] = run
	d.wg.Add(1)
	d.mu.Unlock()

	if started != nil {
		started(run)
	}
	go d.run(id, run, fn)
	return run, true
}

func (d *Dispatcher) run(id ID, run uuid.UUID, fn Func) {
	defer d.wg.Done()

	r := Result{ID: id, RunID: run, Started: time.Now()}
	r.Value, r.Err = fn(d.ctx)
	r.Finished = time.Now()

	select {
	case d.results <- r:
	case <-d.ctx.Done():
	}
}

// Consume delivers results to handle until ctx is cancelled or the dispatcher
// is closed. The task id stays loading until handle returns.
func (d *Dispatcher) Consume(ctx context.Context, handle func(Result)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.ctx.Done():
			return ErrClosed
		case r := <-d.results:
			handle(r)
			d.release(r.ID, r.RunID)
		}
	}
}

func (d *Dispatcher) release(id ID, run uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loading[id] == run {
		delete(d.loading, id)
	}
}

// Loading reports whether id has a run in flight
func (d *Dispatcher) Loading(id ID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.loading[id]
	return ok
}

// Busy reports whether any task is loading
func (d *Dispatcher) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.loading) > 0
}

// State snapshots the loading flags for the UI
func (d *Dispatcher) State() types.TaskState {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := types.TaskState{Loading: make(map[string]bool, len(d.loading))}
	for id := range d.loading {
		st.Loading[string(id)] = true
	}
	st.Busy = len(d.loading) > 0
	return st
}

// Close cancels running tasks and waits for them to return
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()

	d.mu.Lock()
	d.loading = make(map[ID]uuid.UUID)
	d.mu.Unlock()
}
