package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aescanero/datafabric/pkg/domain"
)

type record struct {
	listing      domain.RegisteredCapability
	registration domain.CapabilityRegistration
}

// AssetRegistry implements ports.AssetRegistry in memory
type AssetRegistry struct {
	mu      sync.RWMutex
	records map[string]record
	now     func() time.Time
}

// NewAssetRegistry creates an empty in-memory asset registry
func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{
		records: make(map[string]record),
		now:     time.Now,
	}
}

// RegisterCapability stores reg under a fresh id
func (r *AssetRegistry) RegisterCapability(ctx context.Context, reg domain.CapabilityRegistration) (string, error) {
	if reg.Name == "" {
		return "", errors.New("capability name is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id] = record{
		listing: domain.RegisteredCapability{
			ID:             id,
			Name:           reg.Name,
			Version:        reg.Version,
			Domain:         reg.Domain,
			CapabilityType: reg.CapabilityType,
			RegisteredAt:   r.now().UTC(),
		},
		registration: reg,
	}
	return id, nil
}

// UnregisterCapability removes a registration; false means the id is unknown
func (r *AssetRegistry) UnregisterCapability(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return false, nil
	}
	delete(r.records, id)
	return true, nil
}

// ListByDomain returns the registrations of a domain sorted by name
func (r *AssetRegistry) ListByDomain(ctx context.Context, domainName string) ([]domain.RegisteredCapability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RegisteredCapability, 0)
	for _, rec := range r.records {
		if rec.listing.Domain == domainName {
			out = append(out, rec.listing)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Registration returns the full request stored under id
func (r *AssetRegistry) Registration(id string) (domain.CapabilityRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec.registration, ok
}
