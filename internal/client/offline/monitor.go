package offline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/KreatechIT/mrs-sub000/internal/client/api"
)

const (
	DefaultCheckInterval = 30 * time.Second
	healthTimeout        = 5 * time.Second
)

// StatusListener is told about online/offline transitions.
type StatusListener func(online bool)

// QueuedOp is a write deferred until connectivity returns.
type QueuedOp struct {
	Name string
	Run  func(ctx context.Context) error
}

// Monitor polls the health endpoint and tracks connectivity. While offline,
// reads can fall back to the cache and writes can be queued for replay.
type Monitor struct {
	baseURL  string
	hc       *http.Client
	cache    *Cache
	log      *zap.Logger
	interval time.Duration

	mu        sync.Mutex
	online    bool
	checked   bool
	queue     []QueuedOp
	listeners map[int]StatusListener
	nextID    int
}

type Option func(*Monitor)

func WithHTTPClient(hc *http.Client) Option {
	return func(m *Monitor) { m.hc = hc }
}

func WithCheckInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

func NewMonitor(baseURL string, cache *Cache, log *zap.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		baseURL:   baseURL,
		hc:        &http.Client{Timeout: healthTimeout},
		cache:     cache,
		log:       log,
		interval:  DefaultCheckInterval,
		online:    true,
		listeners: map[int]StatusListener{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Online reports the last observed connectivity. Before the first check the
// monitor assumes online so startup is not penalized.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// AddListener registers a transition observer and returns a removal handle.
func (m *Monitor) AddListener(fn StatusListener) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.listeners[m.nextID] = fn
	return m.nextID
}

func (m *Monitor) RemoveListener(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, id)
}

// Start polls until ctx is cancelled. The first check runs immediately.
func (m *Monitor) Start(ctx context.Context) {
	m.Check(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check performs one health probe and reconciles state. A transition back to
// online flushes the queued writes.
func (m *Monitor) Check(ctx context.Context) bool {
	online := m.probe(ctx)

	m.mu.Lock()
	was, first := m.online, !m.checked
	m.checked = true
	m.online = online
	var fns []StatusListener
	if online != was || first {
		for _, fn := range m.listeners {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	if online != was {
		m.log.Info("connectivity changed", zap.Bool("online", online))
	}
	for _, fn := range fns {
		fn(online)
	}
	if online && !was {
		m.Flush(ctx)
	}
	return online
}

func (m *Monitor) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+api.EndpointHealth, nil)
	if err != nil {
		return false
	}
	resp, err := m.hc.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// Enqueue defers a write until the next reconnect. Queued operations run in
// FIFO order; one that fails again is re-queued.
func (m *Monitor) Enqueue(op QueuedOp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, op)
	m.log.Info("operation queued for replay",
		zap.String("operation", op.Name),
		zap.Int("queue_len", len(m.queue)))
}

// QueueLen reports the number of operations waiting for replay.
func (m *Monitor) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Flush replays the queue. Operations that fail are kept, in order, for the
// next flush.
func (m *Monitor) Flush(ctx context.Context) {
	m.mu.Lock()
	pending := m.queue
	m.queue = nil
	m.mu.Unlock()

	var requeue []QueuedOp
	for _, op := range pending {
		if err := op.Run(ctx); err != nil {
			m.log.Warn("queued operation failed, keeping it",
				zap.String("operation", op.Name),
				zap.Error(err))
			requeue = append(requeue, op)
			continue
		}
		m.log.Info("queued operation replayed", zap.String("operation", op.Name))
	}
	if len(requeue) > 0 {
		m.mu.Lock()
		m.queue = append(requeue, m.queue...)
		m.mu.Unlock()
	}
}

// WithFallback runs op and caches its result under key. When op fails with a
// network-classified error, or the monitor already knows it is offline, the
// cached value is served if it is younger than ttl; otherwise
// ErrNoCachedData wraps the original failure.
func WithFallback[T any](ctx context.Context, m *Monitor, key string, ttl time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if m.Online() {
		v, err := op(ctx)
		if err == nil {
			if cerr := m.cache.Put(key, v); cerr != nil {
				m.log.Warn("cache write failed", zap.String("key", key), zap.Error(cerr))
			}
			return v, nil
		}
		if !errors.Is(err, api.ErrNetwork) {
			return zero, err
		}
		return fromCache[T](m, key, ttl, err)
	}
	return fromCache[T](m, key, ttl, ErrNoCachedData)
}

func fromCache[T any](m *Monitor, key string, ttl time.Duration, cause error) (T, error) {
	var zero T
	raw, ok := m.cache.Get(key, ttl)
	if !ok {
		if errors.Is(cause, ErrNoCachedData) {
			return zero, ErrNoCachedData
		}
		return zero, errors.Join(ErrNoCachedData, cause)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, errors.Join(ErrNoCachedData, cause)
	}
	m.log.Info("serving cached data", zap.String("key", key))
	return v, nil
}
