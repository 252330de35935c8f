package acquisition

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"

	"gocoherence/internal/errors"
)

// Mode selects when devices are read
type Mode string

const (
	ModeContinuous    Mode = "continuous"     // read back to back until stopped
	ModeUserInitiated Mode = "user_initiated" // read only as many times as triggered
)

// ErrStopped is returned by Await once the controller has been stopped.
var ErrStopped = stderrors.New("acquisition stopped")

// ParseMode accepts "continuous" or "user_initiated".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeContinuous, ModeUserInitiated:
		return Mode(s), nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("unknown acquisition mode %q", s))
}

// ControllerState is a snapshot of the controller
type ControllerState struct {
	Mode    Mode           `json:"mode"`
	Stopped bool           `json:"stopped"`
	Pending map[string]int `json:"pending"` // triggered reads not yet taken, per device
}

// Controller is the acquisition mode state machine. External commands (SetMode, Trigger,
// Stop) change its state; reader loops block in Await until they may read.
//
// Transitions:
//   - continuous -> user_initiated and back via SetMode; pending triggers are cleared
//   - Trigger(n) is only accepted in user_initiated and grants n reads to every device
//   - Stop is terminal from either mode
type Controller struct {
	mu      sync.Mutex
	mode    Mode
	stopped bool
	pending map[string]int
	changed chan struct{}
}

// NewController starts in the given mode
func NewController(mode Mode) *Controller {
	return &Controller{
		mode:    mode,
		pending: make(map[string]int),
		changed: make(chan struct{}),
	}
}

// notifyLocked wakes every waiter. Callers hold mu.
func (c *Controller) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// Register adds a device so that triggers reach it.
func (c *Controller) Register(serial string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[serial]; !ok {
		c.pending[serial] = 0
	}
}

// SetMode switches mode. Switching clears outstanding triggers.
func (c *Controller) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrStopped
	}
	if c.mode == mode {
		return nil
	}
	c.mode = mode
	for serial := range c.pending {
		c.pending[serial] = 0
	}
	c.notifyLocked()
	return nil
}

// Trigger grants n more reads to every registered device.
func (c *Controller) Trigger(n int) error {
	if n <= 0 {
		return errors.InvalidInput("trigger count must be positive")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrStopped
	}
	if c.mode != ModeUserInitiated {
		return errors.InvalidInput("trigger requires user_initiated mode")
	}
	for serial := range c.pending {
		c.pending[serial] += n
	}
	c.notifyLocked()
	return nil
}

// Stop ends acquisition. It is idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	c.notifyLocked()
}

// Await blocks until serial may take one read. It returns ErrStopped after Stop and the
// context error on cancellation.
func (c *Controller) Await(ctx context.Context, serial string) error {
	for {
		c.mu.Lock()
		if c.stopped {
			c.mu.Unlock()
			return ErrStopped
		}
		if c.mode == ModeContinuous {
			c.mu.Unlock()
			return nil
		}
		if c.pending[serial] > 0 {
			c.pending[serial]--
			c.mu.Unlock()
			return nil
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// State returns a copy of the current state
func (c *Controller) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := make(map[string]int, len(c.pending))
	for serial, n := range c.pending {
		pending[serial] = n
	}
	return ControllerState{Mode: c.mode, Stopped: c.stopped, Pending: pending}
}

// Serials returns the registered devices in order
func (c *Controller) Serials() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	serials := make([]string, 0, len(c.pending))
	for serial := range c.pending {
		serials = append(serials, serial)
	}
	sort.Strings(serials)
	return serials
}
