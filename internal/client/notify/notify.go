// Package notify fans user-facing notifications out to registered observers.
// Dispatch is synchronous and listeners are isolated from each other.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one user-facing message.
type Notification struct {
	Level   Level
	Title   string
	Message string
	At      time.Time
}

type Listener func(Notification)

// Notifier is the fan-out hub. The zero value is not usable; construct with
// New.
type Notifier struct {
	log *zap.Logger

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

func New(log *zap.Logger) *Notifier {
	return &Notifier{log: log, listeners: map[int]Listener{}}
}

// AddListener registers an observer and returns a handle for removal.
func (n *Notifier) AddListener(fn Listener) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.listeners[n.nextID] = fn
	return n.nextID
}

func (n *Notifier) RemoveListener(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, id)
}

func (n *Notifier) Info(title, message string)    { n.publish(LevelInfo, title, message) }
func (n *Notifier) Success(title, message string) { n.publish(LevelSuccess, title, message) }
func (n *Notifier) Warning(title, message string) { n.publish(LevelWarning, title, message) }
func (n *Notifier) Error(title, message string)   { n.publish(LevelError, title, message) }

func (n *Notifier) publish(level Level, title, message string) {
	note := Notification{Level: level, Title: title, Message: message, At: time.Now()}

	n.mu.Lock()
	fns := make([]Listener, 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	n.log.Debug("notification",
		zap.String("level", string(level)),
		zap.String("title", title))

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					n.log.Error("notification listener panicked", zap.Any("panic", r))
				}
			}()
			fn(note)
		}()
	}
}
