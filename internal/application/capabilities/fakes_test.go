package capabilities

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
)

type fakeAssets struct {
	mu sync.Mutex

	failRegister  map[string]bool
	refuseUnreg   map[string]bool
	failUnreg     map[string]bool
	registrations []domain.CapabilityRegistration
	unregistered  []string
	live          map[string]string // id -> name
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{
		failRegister: make(map[string]bool),
		refuseUnreg:  make(map[string]bool),
		failUnreg:    make(map[string]bool),
		live:         make(map[string]string),
	}
}

func (f *fakeAssets) RegisterCapability(_ context.Context, reg domain.CapabilityRegistration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registrations = append(f.registrations, reg)
	if f.failRegister[reg.Name] {
		return "", fmt.Errorf("registry unavailable for %s", reg.Name)
	}
	id := uuid.NewString()
	f.live[id] = reg.Name
	return id, nil
}

func (f *fakeAssets) UnregisterCapability(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := f.live[id]
	if f.failUnreg[name] {
		return false, errors.New("connection reset")
	}
	if f.refuseUnreg[name] {
		return false, nil
	}
	delete(f.live, id)
	f.unregistered = append(f.unregistered, name)
	return true, nil
}

func (f *fakeAssets) ListByDomain(_ context.Context, domainName string) ([]domain.RegisteredCapability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RegisteredCapability
	for id, name := range f.live {
		out = append(out, domain.RegisteredCapability{ID: id, Name: name, Domain: domainName})
	}
	return out, nil
}

func (f *fakeAssets) registerCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.registrations)
}

type staticSource struct {
	docs []ports.Document
	err  error
}

func (s staticSource) Enumerate(context.Context) ([]ports.Document, error) {
	return s.docs, s.err
}

type fakeScheduler struct {
	mu       sync.Mutex
	fail     map[string]bool
	profiles map[string]domain.SchedulingProfile
	locality [][]domain.LocalitySignal
	err      error
}

func (s *fakeScheduler) ProvideCapability(_ context.Context, unitName string, profile domain.SchedulingProfile) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[unitName] {
		return false, errors.New("scheduler rejected profile")
	}
	if s.profiles == nil {
		s.profiles = make(map[string]domain.SchedulingProfile)
	}
	s.profiles[unitName] = profile
	return true, nil
}

func (s *fakeScheduler) ProvideLocalitySignals(_ context.Context, _ uuid.UUID, signals []domain.LocalitySignal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	s.locality = append(s.locality, signals)
	return true, nil
}

type countingMetrics struct {
	ports.NopMetrics
	mu            sync.Mutex
	registrations map[string]int
	skipped       int
	gauge         int
}

func (m *countingMetrics) RecordCapabilityRegistration(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registrations == nil {
		m.registrations = make(map[string]int)
	}
	m.registrations[status]++
}

func (m *countingMetrics) RecordSourceSkipped(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped++
}

func (m *countingMetrics) SetRegisteredCapabilities(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauge = n
}

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
