// Package loading tracks per-operation busy state so a UI can show spinners
// and progress without each call site keeping its own flags.
package loading

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State describes one in-flight operation.
type State struct {
	IsLoading bool
	Progress  float64
	Message   string
	StartTime time.Time
}

// Listener is invoked synchronously whenever an operation's state changes.
type Listener func(key string, st State)

// Tracker keeps loading state per operation key.
type Tracker struct {
	log *zap.Logger

	mu        sync.Mutex
	ops       map[string]State
	listeners map[int]Listener
	nextID    int
}

func NewTracker(log *zap.Logger) *Tracker {
	return &Tracker{
		log:       log,
		ops:       map[string]State{},
		listeners: map[int]Listener{},
	}
}

// AddListener registers a state-change observer and returns a removal handle.
func (t *Tracker) AddListener(fn Listener) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.listeners[t.nextID] = fn
	return t.nextID
}

func (t *Tracker) RemoveListener(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.listeners, id)
}

// Start marks the operation as loading. The previous state for the key, if
// any, is replaced.
func (t *Tracker) Start(key, message string) {
	t.set(key, State{IsLoading: true, Message: message, StartTime: time.Now()})
}

// Progress updates the completion fraction for a running operation. Values
// are clamped to [0,1]. Progress on an unknown key starts it implicitly.
func (t *Tracker) Progress(key string, fraction float64, message string) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	t.mu.Lock()
	st, ok := t.ops[key]
	if !ok {
		st = State{IsLoading: true, StartTime: time.Now()}
	}
	st.Progress = fraction
	if message != "" {
		st.Message = message
	}
	t.ops[key] = st
	fns := t.snapshot()
	t.mu.Unlock()
	t.notify(fns, key, st)
}

// Finish clears the operation regardless of how it ended.
func (t *Tracker) Finish(key string) {
	t.mu.Lock()
	st, ok := t.ops[key]
	if ok {
		delete(t.ops, key)
		t.log.Debug("operation finished",
			zap.String("operation", key),
			zap.Duration("elapsed", time.Since(st.StartTime)))
	}
	fns := t.snapshot()
	t.mu.Unlock()
	if ok {
		t.notify(fns, key, State{})
	}
}

// Get returns the current state for a key; a zero State means idle.
func (t *Tracker) Get(key string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ops[key]
}

// Active returns the keys currently loading.
func (t *Tracker) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]string, 0, len(t.ops))
	for k := range t.ops {
		keys = append(keys, k)
	}
	return keys
}

// WithLoading runs op under the key, guaranteeing the state is cleared on
// both success and failure.
func (t *Tracker) WithLoading(ctx context.Context, key, message string, op func(ctx context.Context) error) error {
	t.Start(key, message)
	defer t.Finish(key)
	return op(ctx)
}

// WithProgress is WithLoading for operations that can report completion; op
// receives a report callback taking a fraction in [0,1].
func (t *Tracker) WithProgress(ctx context.Context, key, message string, op func(ctx context.Context, report func(float64)) error) error {
	t.Start(key, message)
	defer t.Finish(key)
	return op(ctx, func(fraction float64) {
		t.Progress(key, fraction, "")
	})
}

func (t *Tracker) set(key string, st State) {
	t.mu.Lock()
	t.ops[key] = st
	fns := t.snapshot()
	t.mu.Unlock()
	t.notify(fns, key, st)
}

// snapshot must be called with the mutex held.
func (t *Tracker) snapshot() []Listener {
	fns := make([]Listener, 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	return fns
}

// notify runs listeners outside the lock; a panicking listener is isolated
// so it cannot take down its siblings or the caller.
func (t *Tracker) notify(fns []Listener, key string, st State) {
	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.log.Error("loading listener panicked", zap.Any("panic", r))
				}
			}()
			fn(key, st)
		}()
	}
}
