package state

import (
	"sync"

	"github.com/2beens/liftsync/internal/model"
)

// Updater computes the next state from the latest one. It receives a deep
// copy and may modify and return it.
type Updater func(s model.AppState) model.AppState

// TransitionHook observes every non-silent transition, in call order.
// Hooks run under the container lock and must not block.
type TransitionHook func(prev, next model.AppState)

// Container holds the single current AppState version for the session.
type Container struct {
	mu      sync.Mutex
	current model.AppState
	version uint64
	hooks   []TransitionHook
}

func NewContainer(initial model.AppState) *Container {
	return &Container{
		current: initial.Clone(),
	}
}

// OnTransition registers a hook that runs after every Apply.
func (c *Container) OnTransition(hook TransitionHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook)
}

// Snapshot returns a deep copy of the current version.
func (c *Container) Snapshot() model.AppState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Clone()
}

// Version is incremented with every applied update, silent or not.
func (c *Container) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Apply installs updater(latest) as the new version and runs the transition
// hooks with the previous and the new version.
func (c *Container) Apply(updater Updater) {
	c.apply(updater, true)
}

// ApplySilent installs updater(latest) without running the hooks. Used for
// merges that must not be seen as local edits (server results).
func (c *Container) ApplySilent(updater Updater) {
	c.apply(updater, false)
}

func (c *Container) apply(updater Updater, notify bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current
	next := updater(prev.Clone())
	c.current = next
	c.version++

	if !notify {
		return
	}
	for _, hook := range c.hooks {
		hook(prev, next)
	}
}
