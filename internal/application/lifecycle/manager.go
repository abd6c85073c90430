package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/datafabric/internal/application/capabilities"
	"github.com/aescanero/datafabric/internal/application/signals"
)

// State is the lifecycle phase of a Manager
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateReady    State = "ready"
	// StateDegraded means startup finished but some capabilities failed to register
	StateDegraded State = "degraded"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

// Serving reports whether the data fabric accepts traffic in this state
func (s State) Serving() bool {
	return s == StateReady || s == StateDegraded
}

// ErrAlreadyStarted is returned by Start when called more than once
var ErrAlreadyStarted = errors.New("lifecycle already started")

// Status is a snapshot of the manager
type Status struct {
	State           State             `json:"state"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	StoppedAt       *time.Time        `json:"stopped_at,omitempty"`
	Registered      int               `json:"registered_capabilities"`
	FailedToLoad    map[string]string `json:"failed_capabilities,omitempty"`
	Provided        int               `json:"provided_capabilities"`
	Signals         signals.Counts    `json:"signals"`
	SkippedSources  int               `json:"skipped_sources"`
	Leftovers       []string          `json:"leftovers,omitempty"`
	RemoteLeftovers int               `json:"remote_leftovers,omitempty"`
}

// Manager coordinates the capability registry, the scheduling hint provider
// and the signal registry across startup and shutdown
type Manager struct {
	capabilities *capabilities.Registry
	provider     *capabilities.Provider
	signals      *signals.Registry
	logger       *zap.Logger

	loadTimeout time.Duration
	now         func() time.Time

	mu        sync.RWMutex
	status    Status
	listeners []func(State)
}

// NewManager creates a lifecycle manager. loadTimeout bounds Start; zero
// leaves it to the caller's context.
func NewManager(
	caps *capabilities.Registry,
	provider *capabilities.Provider,
	sigs *signals.Registry,
	logger *zap.Logger,
	loadTimeout time.Duration,
) *Manager {
	if caps == nil || provider == nil || sigs == nil {
		panic("lifecycle: nil registry or provider")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		capabilities: caps,
		provider:     provider,
		signals:      sigs,
		logger:       logger,
		loadTimeout:  loadTimeout,
		now:          time.Now,
		status:       Status{State: StateIdle},
	}
}

// OnStateChange registers fn to be called after every state transition.
// Listeners run synchronously and must not call back into the manager.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Start loads signals and capabilities and publishes scheduling hints.
// Individual failures degrade the state instead of failing Start; only a
// cancelled or expired context is an error.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.status.State != StateIdle {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.mu.Unlock()
	m.transition(StateStarting)

	if m.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.loadTimeout)
		defer cancel()
	}

	m.logger.Info("starting data fabric", zap.String("domain", m.capabilities.Domain()))

	signalWarnings := m.signals.Load(ctx)
	loaded := m.capabilities.LoadAll(ctx)
	provided := m.provider.ProvideAll(ctx)

	failed := make(map[string]string, len(loaded.Failed))
	for name, err := range loaded.Failed {
		failed[name] = err.Error()
	}
	providedOK := 0
	for _, ok := range provided {
		if ok {
			providedOK++
		}
	}

	counts := m.signals.Counts()
	started := m.now().UTC()
	m.mu.Lock()
	m.status.StartedAt = &started
	m.status.Registered = len(loaded.Registered)
	m.status.FailedToLoad = failed
	m.status.Provided = providedOK
	m.status.Signals = counts
	m.status.SkippedSources = len(signalWarnings) + len(loaded.Warnings)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		m.transition(StateDegraded)
		return fmt.Errorf("failed to complete startup: %w", err)
	}

	state := StateReady
	if len(failed) > 0 || providedOK < len(provided) {
		state = StateDegraded
	}
	m.transition(state)

	m.logger.Info("data fabric started",
		zap.String("state", string(state)),
		zap.Int("registered", len(loaded.Registered)),
		zap.Int("failed", len(failed)),
		zap.Int("provided", providedOK),
		zap.Int("signals", counts.Total))
	return nil
}

// Shutdown revokes every registration made by Start. Registrations that
// could not be revoked are reported in the returned error and in Status.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	state := m.status.State
	m.mu.RUnlock()
	if state == StateStopped || state == StateIdle {
		return nil
	}
	m.transition(StateStopping)
	m.logger.Info("shutting down data fabric")

	m.capabilities.UnloadAll(ctx)
	leftovers := m.capabilities.ListRegistered()

	remote, err := m.capabilities.ListRemote(ctx)
	if err != nil {
		m.logger.Warn("failed to list remote registrations", zap.Error(err))
	} else if len(remote) > 0 {
		names := make([]string, len(remote))
		for i, r := range remote {
			names[i] = r.Name
		}
		sort.Strings(names)
		m.logger.Warn("asset registry still lists capabilities for domain",
			zap.String("domain", m.capabilities.Domain()),
			zap.Strings("capabilities", names))
	}

	stopped := m.now().UTC()
	m.mu.Lock()
	m.status.StoppedAt = &stopped
	m.status.Registered = len(leftovers)
	m.status.Leftovers = leftovers
	m.status.RemoteLeftovers = len(remote)
	m.mu.Unlock()
	m.transition(StateStopped)

	if len(leftovers) > 0 {
		return fmt.Errorf("failed to unregister %d capabilities: %s", len(leftovers), strings.Join(leftovers, ", "))
	}
	m.logger.Info("data fabric shut down complete")
	return nil
}

// Status returns a snapshot of the manager
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.status
	if s.FailedToLoad != nil {
		s.FailedToLoad = make(map[string]string, len(m.status.FailedToLoad))
		for k, v := range m.status.FailedToLoad {
			s.FailedToLoad[k] = v
		}
	}
	s.Leftovers = append([]string(nil), m.status.Leftovers...)
	return s
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.State
}

// Ready reports whether the data fabric is serving
func (m *Manager) Ready() bool {
	return m.State().Serving()
}

func (m *Manager) transition(state State) {
	m.mu.Lock()
	m.status.State = state
	listeners := append([]func(State){}, m.listeners...)
	m.mu.Unlock()

	m.logger.Debug("lifecycle state changed", zap.String("state", string(state)))
	for _, fn := range listeners {
		fn(state)
	}
}
