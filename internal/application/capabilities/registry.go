package capabilities

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/datafabric/internal/schema"
	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
)

// Registration status labels reported to the metrics collector
const (
	statusSuccess = "success"
	statusFailed  = "failed"
	statusSkipped = "skipped"
)

var errEmptyID = errors.New("asset registry returned an empty id")

// LoadResult itemises the outcome of LoadAll
type LoadResult struct {
	// Registered maps card name to the asset registry id, including cards
	// that were already registered before this call
	Registered map[string]string
	// Failed maps card name to the registration error
	Failed map[string]error
	// Warnings lists sources skipped during discovery
	Warnings []domain.Warning
}

type registration struct {
	card domain.CapabilityCard
	id   string
}

// Registry turns declarative capability cards into live registrations and
// tracks them for symmetric teardown
type Registry struct {
	source    ports.SourceEnumerator
	assets    ports.AssetRegistry
	validator *schema.Validator
	metrics   ports.MetricsCollector
	logger    *zap.Logger

	domain string
	policy domain.DuplicatePolicy
	now    func() time.Time

	mu         sync.RWMutex
	registered map[string]registration
}

// Option configures a Registry
type Option func(*Registry)

// WithDomain sets the domain assumed for cards that do not declare one
func WithDomain(name string) Option {
	return func(r *Registry) {
		if name != "" {
			r.domain = name
		}
	}
}

// WithDuplicatePolicy sets how cards sharing a name are resolved
func WithDuplicatePolicy(p domain.DuplicatePolicy) Option {
	return func(r *Registry) {
		if p != "" {
			r.policy = p
		}
	}
}

// WithClock overrides the clock used for registered_at metadata
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates a capability registry. source and assets are required.
func NewRegistry(
	source ports.SourceEnumerator,
	assets ports.AssetRegistry,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	opts ...Option,
) *Registry {
	if source == nil {
		panic("capabilities: nil source enumerator")
	}
	if assets == nil {
		panic("capabilities: nil asset registry")
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{
		source:     source,
		assets:     assets,
		validator:  schema.MustNew(schema.KindCapability),
		metrics:    metrics,
		logger:     logger,
		domain:     domain.DefaultDomain,
		policy:     domain.DuplicateOverwrite,
		now:        time.Now,
		registered: make(map[string]registration),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Domain returns the domain this registry owns
func (r *Registry) Domain() string {
	return r.domain
}

// Discover reads and parses every declarative source. Sources that cannot be
// decoded, fail validation or lose a duplicate conflict are skipped with a
// warning; discovery never aborts because of one bad source.
func (r *Registry) Discover(ctx context.Context) ([]domain.CapabilityCard, []domain.Warning) {
	docs, err := r.source.Enumerate(ctx)
	if err != nil {
		r.logger.Error("failed to enumerate capability sources", zap.Error(err))
		return nil, []domain.Warning{{Reason: fmt.Sprintf("failed to enumerate sources: %v", err)}}
	}

	var (
		cards    []domain.CapabilityCard
		warnings []domain.Warning
		index    = make(map[string]int)
	)
	skip := func(w domain.Warning) {
		r.logger.Warn("skipping capability source",
			zap.String("origin", w.Origin),
			zap.String("capability", w.Name),
			zap.String("reason", w.Reason))
		r.metrics.RecordSourceSkipped(string(schema.KindCapability))
		warnings = append(warnings, w)
	}

	for _, doc := range docs {
		if doc.Err != nil {
			skip(domain.Warning{Origin: doc.Origin, Reason: doc.Err.Error()})
			continue
		}
		if err := r.validator.Validate(doc.Body); err != nil {
			skip(domain.Warning{Origin: doc.Origin, Reason: err.Error()})
			continue
		}
		card, err := parseCard(doc.Origin, doc.Body, r.domain)
		if err != nil {
			skip(domain.Warning{Origin: doc.Origin, Reason: err.Error()})
			continue
		}

		if i, dup := index[card.Name]; dup {
			if r.policy == domain.DuplicateReject {
				skip(domain.Warning{
					Origin: doc.Origin,
					Name:   card.Name,
					Reason: fmt.Sprintf("duplicate of %s rejected", cards[i].Origin),
				})
				continue
			}
			w := domain.Warning{
				Origin: doc.Origin,
				Name:   card.Name,
				Reason: fmt.Sprintf("overwrites %s", cards[i].Origin),
			}
			r.logger.Warn("duplicate capability card overwritten",
				zap.String("origin", w.Origin),
				zap.String("capability", w.Name),
				zap.String("previous_origin", cards[i].Origin))
			warnings = append(warnings, w)
			cards[i] = card
			continue
		}

		index[card.Name] = len(cards)
		cards = append(cards, card)
	}

	r.logger.Debug("capability discovery finished",
		zap.Int("cards", len(cards)),
		zap.Int("warnings", len(warnings)))
	return cards, warnings
}

// LoadAll registers every discovered card with the asset registry.
// A failing card is reported in the result and does not stop the loop.
// Cards already registered by this instance are reported with their
// existing id and not registered again.
func (r *Registry) LoadAll(ctx context.Context) LoadResult {
	cards, warnings := r.Discover(ctx)
	result := LoadResult{
		Registered: make(map[string]string, len(cards)),
		Failed:     make(map[string]error),
		Warnings:   warnings,
	}

	for _, card := range cards {
		if err := ctx.Err(); err != nil {
			result.Failed[card.Name] = err
			continue
		}

		if id, ok := r.RegisteredID(card.Name); ok {
			result.Registered[card.Name] = id
			r.metrics.RecordCapabilityRegistration(statusSkipped)
			continue
		}

		id, err := r.assets.RegisterCapability(ctx, r.registrationFor(card))
		if err == nil && id == "" {
			err = errEmptyID
		}
		if err != nil {
			r.logger.Warn("failed to register capability",
				zap.String("capability", card.Name),
				zap.Error(err))
			r.metrics.RecordCapabilityRegistration(statusFailed)
			result.Failed[card.Name] = fmt.Errorf("failed to register %s: %w", card.Name, err)
			continue
		}

		r.mu.Lock()
		r.registered[card.Name] = registration{card: card, id: id}
		r.mu.Unlock()

		result.Registered[card.Name] = id
		r.metrics.RecordCapabilityRegistration(statusSuccess)
		r.logger.Debug("capability registered",
			zap.String("capability", card.Name),
			zap.String("asset_id", id))
	}

	r.metrics.SetRegisteredCapabilities(r.Count())
	r.logger.Info("capabilities loaded",
		zap.String("domain", r.domain),
		zap.Int("registered", len(result.Registered)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("skipped_sources", len(result.Warnings)))
	return result
}

// UnloadAll revokes every registration this instance tracks. Successfully
// revoked cards leave the table; failures stay tracked and are reported.
func (r *Registry) UnloadAll(ctx context.Context) map[string]bool {
	r.mu.RLock()
	pending := make([]registration, 0, len(r.registered))
	for _, reg := range r.registered {
		pending = append(pending, reg)
	}
	r.mu.RUnlock()
	sort.Slice(pending, func(i, j int) bool { return pending[i].card.Name < pending[j].card.Name })

	results := make(map[string]bool, len(pending))
	for _, reg := range pending {
		name := reg.card.Name
		if err := ctx.Err(); err != nil {
			results[name] = false
			continue
		}

		ok, err := r.assets.UnregisterCapability(ctx, reg.id)
		if err != nil {
			r.logger.Warn("failed to unregister capability",
				zap.String("capability", name),
				zap.String("asset_id", reg.id),
				zap.Error(err))
			ok = false
		} else if !ok {
			r.logger.Warn("asset registry refused unregistration",
				zap.String("capability", name),
				zap.String("asset_id", reg.id))
		}
		results[name] = ok

		if ok {
			r.mu.Lock()
			delete(r.registered, name)
			r.mu.Unlock()
			r.metrics.RecordCapabilityUnregistration(statusSuccess)
		} else {
			r.metrics.RecordCapabilityUnregistration(statusFailed)
		}
	}

	remaining := r.Count()
	r.metrics.SetRegisteredCapabilities(remaining)
	if remaining > 0 {
		r.logger.Warn("capabilities still registered after unload",
			zap.Int("remaining", remaining),
			zap.Strings("capabilities", r.ListRegistered()))
	} else {
		r.logger.Info("capabilities unloaded", zap.Int("unregistered", len(results)))
	}
	return results
}

// GetProfile returns the registered card for name
func (r *Registry) GetProfile(name string) (domain.CapabilityCard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.registered[name]
	return reg.card, ok
}

// RegisteredID returns the asset registry id of a registered card
func (r *Registry) RegisteredID(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.registered[name]
	return reg.id, ok
}

// ListRegistered returns the names of registered cards, sorted
func (r *Registry) ListRegistered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.registered))
	for name := range r.registered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profiles returns the registered cards sorted by name
func (r *Registry) Profiles() []domain.CapabilityCard {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cards := make([]domain.CapabilityCard, 0, len(r.registered))
	for _, reg := range r.registered {
		cards = append(cards, reg.card)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Name < cards[j].Name })
	return cards
}

// Count returns the number of registered cards
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.registered)
}

// ListRemote asks the asset registry what it holds for this domain
func (r *Registry) ListRemote(ctx context.Context) ([]domain.RegisteredCapability, error) {
	caps, err := r.assets.ListByDomain(ctx, r.domain)
	if err != nil {
		return nil, fmt.Errorf("failed to list capabilities for domain %s: %w", r.domain, err)
	}
	return caps, nil
}

func (r *Registry) registrationFor(card domain.CapabilityCard) domain.CapabilityRegistration {
	failureModes := card.FailureModes
	if failureModes == nil {
		failureModes = []string{}
	}
	return domain.CapabilityRegistration{
		Name:            card.Name,
		Version:         card.Version,
		Domain:          card.Domain,
		CapabilityType:  card.CapabilityType,
		Tags:            append([]string(nil), card.Tags...),
		Description:     card.Description,
		InputContract:   card.InputContract,
		OutputContract:  card.OutputContract,
		ConsumerIntents: append([]string(nil), card.ConsumerIntents...),
		Metadata: map[string]interface{}{
			"failure_modes": append([]string(nil), failureModes...),
			"adr_reference": card.ADRReference,
			"registered_at": r.now().UTC().Format(time.RFC3339),
			"scheduling":    schedulingMetadata(card.Scheduling),
		},
	}
}
