package workflow

import (
	"errors"
	"sync"
)

// ErrBusy is returned when another mutating action is already in flight.
var ErrBusy = errors.New("another action is in progress")

// Action names a mutating workflow action.
type Action string

const (
	ActionSave             Action = "save"
	ActionDelete           Action = "delete"
	ActionGenerateMedia    Action = "generate_media"
	ActionRegenerateImages Action = "regenerate_images"
	ActionRegenerateVideo  Action = "regenerate_video"
	ActionApprove          Action = "approve"
	ActionPublish          Action = "publish"
)

// Guard admits one mutating action at a time.
type Guard struct {
	mu     sync.Mutex
	action Action
}

// TryAcquire claims the guard for action. The returned release is idempotent.
func (g *Guard) TryAcquire(action Action) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.action != "" {
		return nil, ErrBusy
	}
	g.action = action

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.action = ""
			g.mu.Unlock()
		})
	}, nil
}

func (g *Guard) Busy() bool {
	return g.InFlight() != ""
}

// InFlight returns the action holding the guard, or "".
func (g *Guard) InFlight() Action {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.action
}
