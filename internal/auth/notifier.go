package auth

import (
	"context"
	"sync"
)

// Session events handed to observers.
const (
	EventLogin  = "login"
	EventLogout = "logout"
)

// SessionObserver reacts to a user's session starting or ending, e.g. by
// resyncing or wiping per-user client state.
type SessionObserver interface {
	OnSessionChange(ctx context.Context, userID, event string)
}

// Notifier fans session events out to registered observers.
type Notifier struct {
	mu        sync.RWMutex
	observers []SessionObserver
}

// NewNotifier constructs an empty observer registry.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Register adds an observer. Registration order is notification order.
func (n *Notifier) Register(observer SessionObserver) {
	if observer == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, observer)
}

// Notify delivers the event to every observer synchronously.
func (n *Notifier) Notify(ctx context.Context, userID, event string) {
	n.mu.RLock()
	observers := make([]SessionObserver, len(n.observers))
	copy(observers, n.observers)
	n.mu.RUnlock()

	for _, observer := range observers {
		observer.OnSessionChange(ctx, userID, event)
	}
}
