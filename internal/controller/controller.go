// Package controller resolves the global and zone setpoints of the heating and dispatches them to the zone's devices.
//
// A Controller re-evaluates the setpoints when it starts, when the presence mode changes, when the user sets the global
// setpoint or switches the heating on, and when a schedule rule starts or ends. All resolutions run sequentially
// in the controller's Run loop.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clambin/thermostat-control/internal/configuration"
	"github.com/clambin/thermostat-control/internal/controller/notifier"
	"github.com/clambin/thermostat-control/internal/limits"
)

// DefaultInitDelay is the time the controller waits after start-up before its first resolution.
const DefaultInitDelay = time.Minute

type Controller struct {
	heating    configuration.Heating
	dispatcher Dispatcher
	presence   PresenceSensor
	store      StateStore
	notifier   notifier.Notifier
	metrics    Metrics
	logger     *slog.Logger
	initDelay  time.Duration
	now        Clock

	commands    chan command
	wakeups     *wakeups
	initialized bool

	lock  sync.RWMutex
	state State
	zones map[string]float64
}

type Option func(*Controller)

// WithInitDelay sets the time the controller waits before its first resolution. Default is DefaultInitDelay.
func WithInitDelay(delay time.Duration) Option {
	return func(c *Controller) { c.initDelay = delay }
}

// WithStore sets the store used to persist the controller's state. By default, state is not persisted.
func WithStore(store StateStore) Option {
	return func(c *Controller) { c.store = store }
}

func WithNotifier(n notifier.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithMetrics(m Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock overrides how the controller determines the current time.
func WithClock(now Clock) Option {
	return func(c *Controller) { c.now = now }
}

func New(heating configuration.Heating, dispatcher Dispatcher, presence PresenceSensor, logger *slog.Logger, options ...Option) *Controller {
	c := Controller{
		heating:    heating,
		dispatcher: dispatcher,
		presence:   presence,
		store:      &memoryStore{state: State{Power: true}},
		notifier:   notifier.Notifiers{},
		metrics:    nopMetrics{},
		logger:     logger,
		initDelay:  DefaultInitDelay,
		now:        time.Now,
		commands:   make(chan command),
		wakeups:    newWakeups(),
		state:      State{Power: true},
		zones:      make(map[string]float64),
	}
	for _, option := range options {
		option(&c)
	}
	return &c
}

// Run loads the persisted state and resolves the setpoints whenever one of the triggers occurs, until ctx is canceled.
// Presence changes are ignored until the first resolution. Scheduled wake-ups are canceled when Run returns.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.load(ctx); err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	ch := c.presence.Subscribe()
	defer c.presence.Unsubscribe(ch)
	defer c.cancelWakeups()

	c.logger.Debug("controller starting", "initDelay", c.initDelay)
	defer c.logger.Debug("controller stopping")

	initTimer := time.NewTimer(c.initDelay)
	defer initTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-initTimer.C:
			c.initialized = true
			c.Resolve(ctx, SourceInit)
		case mode := <-ch:
			if !c.initialized {
				c.logger.Debug("presence changed before start-up. ignoring", "mode", mode)
				continue
			}
			c.logger.Info("presence changed", "mode", mode)
			c.Resolve(ctx, SourcePresence)
		case cmd := <-c.commands:
			cmd.result <- c.execute(ctx, cmd)
		case wakeup := <-c.wakeups.fired:
			if !c.wakeups.current(wakeup) {
				c.logger.Debug("dropping stale wake-up", "wakeup", wakeup)
				continue
			}
			// a timer may fire slightly early. evaluate at the scheduled time, so the boundary has been crossed.
			c.resolve(ctx, wakeup.Source, later(c.now(), wakeup.At))
		}
	}
}

func (c *Controller) load(ctx context.Context) error {
	state, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	c.lock.Lock()
	c.state = state
	c.lock.Unlock()
	c.logger.Debug("state loaded", "state", state)
	return nil
}

func (c *Controller) getState() State {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.state
}

// setState updates and persists the state. Failing to persist is logged: the controller continues with the new state.
func (c *Controller) setState(ctx context.Context, state State) {
	c.lock.Lock()
	c.state = state
	c.lock.Unlock()
	if err := c.store.Save(ctx, state); err != nil {
		c.logger.Error("failed to save state", "err", err)
	}
}

func (c *Controller) cancelWakeups() {
	c.lock.Lock()
	c.wakeups.cancelAll()
	c.lock.Unlock()
	c.metrics.WakeupsScheduled(0)
}

func (c *Controller) notify(e notifier.Event) {
	e.Time = c.now()
	e.Unit = c.heating.Unit.Symbol()
	e.Power = c.getState().Power
	c.notifier.Notify(e)
}

// Status returns a snapshot of the controller's state. Status is safe for concurrent use.
func (c *Controller) Status() Status {
	minimum, maximum := c.heating.GlobalLimit.Resolve(limits.Limit{})
	presence, _ := c.presence.Mode()

	c.lock.RLock()
	defer c.lock.RUnlock()
	zones := make(map[string]float64, len(c.zones))
	for name, level := range c.zones {
		zones[name] = level
	}
	return Status{
		State:    c.state,
		Presence: presence,
		Unit:     c.heating.Unit.Symbol(),
		Min:      minimum,
		Max:      maximum,
		Zones:    zones,
		Wakeups:  c.wakeups.scheduled(),
	}
}

func later(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}

var _ StateStore = &memoryStore{}

type memoryStore struct {
	state State
	lock  sync.Mutex
}

func (m *memoryStore) Load(_ context.Context) (State, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state, nil
}

func (m *memoryStore) Save(_ context.Context, state State) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.state = state
	return nil
}
