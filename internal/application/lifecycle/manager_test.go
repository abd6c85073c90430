package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/datafabric/internal/application/capabilities"
	"github.com/aescanero/datafabric/internal/application/signals"
	"github.com/aescanero/datafabric/pkg/adapters/registry/memory"
	"github.com/aescanero/datafabric/pkg/adapters/sources"
	"github.com/aescanero/datafabric/pkg/catalog"
	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
)

// flakyAssets wraps the in-memory registry and fails or refuses selected capabilities
type flakyAssets struct {
	*memory.AssetRegistry
	mu          sync.Mutex
	failOn      map[string]bool
	refuseUnreg bool
}

func (f *flakyAssets) RegisterCapability(ctx context.Context, reg domain.CapabilityRegistration) (string, error) {
	f.mu.Lock()
	fail := f.failOn[reg.Name]
	f.mu.Unlock()
	if fail {
		return "", errors.New("registry unavailable")
	}
	return f.AssetRegistry.RegisterCapability(ctx, reg)
}

func (f *flakyAssets) UnregisterCapability(ctx context.Context, id string) (bool, error) {
	if f.refuseUnreg {
		return false, nil
	}
	return f.AssetRegistry.UnregisterCapability(ctx, id)
}

func newManager(t *testing.T, assets ports.AssetRegistry) *Manager {
	t.Helper()
	caps := capabilities.NewRegistry(sources.NewFSEnumerator(catalog.Capabilities(), ".", nil), assets, nil, nil)
	sigs := signals.NewRegistry(sources.NewFSEnumerator(catalog.Signals(), ".", nil), nil, nil)
	return NewManager(caps, capabilities.NewProvider(caps, nil, nil), sigs, nil, time.Minute)
}

func TestStartAndShutdown(t *testing.T) {
	assets := memory.NewAssetRegistry()
	m := newManager(t, assets)

	var states []State
	m.OnStateChange(func(s State) { states = append(states, s) })

	assert.False(t, m.Ready())
	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.Ready())

	st := m.Status()
	assert.Equal(t, StateReady, st.State)
	assert.Equal(t, 22, st.Registered)
	assert.Equal(t, 22, st.Provided)
	assert.Equal(t, signals.Counts{Metrics: 4, Outcomes: 3, Advisors: 3, Total: 10}, st.Signals)
	assert.Zero(t, st.SkippedSources)
	require.NotNil(t, st.StartedAt)

	remote, err := assets.ListByDomain(context.Background(), domain.DefaultDomain)
	require.NoError(t, err)
	assert.Len(t, remote, 22)

	require.NoError(t, m.Shutdown(context.Background()))
	st = m.Status()
	assert.Equal(t, StateStopped, st.State)
	assert.Zero(t, st.Registered)
	assert.Empty(t, st.Leftovers)
	assert.Zero(t, st.RemoteLeftovers)
	assert.False(t, m.Ready())

	assert.Equal(t, []State{StateStarting, StateReady, StateStopping, StateStopped}, states)
}

func TestStartTwice(t *testing.T) {
	m := newManager(t, memory.NewAssetRegistry())
	require.NoError(t, m.Start(context.Background()))
	assert.ErrorIs(t, m.Start(context.Background()), ErrAlreadyStarted)
}

func TestStartDegradesOnRegistrationFailure(t *testing.T) {
	assets := &flakyAssets{AssetRegistry: memory.NewAssetRegistry(), failOn: map[string]bool{"DataWriter": true}}
	m := newManager(t, assets)

	require.NoError(t, m.Start(context.Background()))
	st := m.Status()
	assert.Equal(t, StateDegraded, st.State)
	assert.True(t, st.State.Serving())
	assert.Equal(t, 21, st.Registered)
	assert.Contains(t, st.FailedToLoad["DataWriter"], "registry unavailable")
}

func TestShutdownReportsLeftovers(t *testing.T) {
	assets := &flakyAssets{AssetRegistry: memory.NewAssetRegistry(), refuseUnreg: true}
	m := newManager(t, assets)
	require.NoError(t, m.Start(context.Background()))

	err := m.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "22 capabilities")

	st := m.Status()
	assert.Equal(t, StateStopped, st.State)
	assert.Len(t, st.Leftovers, 22)
	assert.Equal(t, 22, st.RemoteLeftovers)
}

func TestStartWithCancelledContext(t *testing.T) {
	m := newManager(t, memory.NewAssetRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Start(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateDegraded, m.State())
	assert.Zero(t, m.Status().Registered)
}

func TestShutdownBeforeStartIsNoop(t *testing.T) {
	m := newManager(t, memory.NewAssetRegistry())
	assert.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, StateIdle, m.State())
}
