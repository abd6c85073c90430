package capabilities

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
)

// ProfileLister returns the capability cards whose hints should be published
type ProfileLister interface {
	Profiles() []domain.CapabilityCard
}

// Provider publishes scheduling hints and locality signals to the control
// plane scheduler. It never schedules anything itself.
type Provider struct {
	profiles  ProfileLister
	scheduler ports.Scheduler
	logger    *zap.Logger

	mu       sync.RWMutex
	provided map[string]bool
}

// NewProvider creates a provider. A nil scheduler makes every publication a
// successful no-op, which is how the data fabric runs without a control plane.
func NewProvider(profiles ProfileLister, scheduler ports.Scheduler, logger *zap.Logger) *Provider {
	if profiles == nil {
		panic("capabilities: nil profile lister")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		profiles:  profiles,
		scheduler: scheduler,
		logger:    logger,
		provided:  make(map[string]bool),
	}
}

// ProvideAll publishes the scheduling profile of every listed capability.
// Each capability is published independently; one failure does not stop the rest.
func (p *Provider) ProvideAll(ctx context.Context) map[string]bool {
	cards := p.profiles.Profiles()
	results := make(map[string]bool, len(cards))

	for _, card := range cards {
		if p.scheduler == nil {
			results[card.Name] = true
			continue
		}
		if err := ctx.Err(); err != nil {
			results[card.Name] = false
			continue
		}

		ok, err := p.scheduler.ProvideCapability(ctx, card.Name, card.Scheduling)
		if err != nil {
			p.logger.Warn("failed to provide capability",
				zap.String("capability", card.Name),
				zap.Error(err))
			ok = false
		}
		results[card.Name] = ok
		if ok {
			p.mu.Lock()
			p.provided[card.Name] = true
			p.mu.Unlock()
		}
	}

	p.logger.Info("capabilities provided to scheduler",
		zap.Int("capabilities", len(results)),
		zap.Int("provided", len(p.Provided())))
	return results
}

// ProvideLocalitySignals forwards locality signals for an intent.
// Signals influence placement; the scheduler decides it.
func (p *Provider) ProvideLocalitySignals(ctx context.Context, intentID uuid.UUID, signals []domain.LocalitySignal) bool {
	if p.scheduler == nil {
		return true
	}
	ok, err := p.scheduler.ProvideLocalitySignals(ctx, intentID, signals)
	if err != nil {
		p.logger.Warn("failed to provide locality signals",
			zap.String("intent_id", intentID.String()),
			zap.Int("signals", len(signals)),
			zap.Error(err))
		return false
	}
	return ok
}

// Provided returns the capabilities the scheduler accepted, sorted
func (p *Provider) Provided() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.provided))
	for name := range p.provided {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
