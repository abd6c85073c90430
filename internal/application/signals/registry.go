package signals

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aescanero/datafabric/internal/schema"
	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
)

// bucketOrder is the order GetForUnit and All walk the type buckets in
var bucketOrder = []domain.SignalType{
	domain.SignalTypeMetric,
	domain.SignalTypeOutcome,
	domain.SignalTypeAdvisor,
}

// Counts summarises the loaded definitions per type
type Counts struct {
	Metrics  int `json:"metrics"`
	Outcomes int `json:"outcomes"`
	Advisors int `json:"advisors"`
	Total    int `json:"total"`
}

// Registry holds feedback signal definitions bucketed by type.
// Names are unique across all buckets.
type Registry struct {
	source    ports.SourceEnumerator
	validator *schema.Validator
	metrics   ports.MetricsCollector
	logger    *zap.Logger
	domain    string
	policy    domain.DuplicatePolicy

	mu      sync.RWMutex
	byName  map[string]domain.SignalDefinition
	buckets map[domain.SignalType][]string
}

// Option configures a Registry
type Option func(*Registry)

// WithDomain sets the domain assumed for definitions that do not declare one
func WithDomain(name string) Option {
	return func(r *Registry) {
		if name != "" {
			r.domain = name
		}
	}
}

// WithDuplicatePolicy sets how definitions sharing a name are resolved
func WithDuplicatePolicy(p domain.DuplicatePolicy) Option {
	return func(r *Registry) {
		if p != "" {
			r.policy = p
		}
	}
}

// NewRegistry creates an empty signal registry reading from source
func NewRegistry(source ports.SourceEnumerator, metrics ports.MetricsCollector, logger *zap.Logger, opts ...Option) *Registry {
	if source == nil {
		panic("signals: nil source enumerator")
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		source:    source,
		validator: schema.MustNew(schema.KindSignal),
		metrics:   metrics,
		logger:    logger,
		domain:    domain.DefaultDomain,
		policy:    domain.DuplicateOverwrite,
		byName:    make(map[string]domain.SignalDefinition),
		buckets:   make(map[domain.SignalType][]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the registry contents with the definitions read from the
// source. Malformed sources are skipped with a warning.
func (r *Registry) Load(ctx context.Context) []domain.Warning {
	docs, err := r.source.Enumerate(ctx)
	if err != nil {
		r.logger.Error("failed to enumerate signal sources", zap.Error(err))
		return []domain.Warning{{Reason: fmt.Sprintf("failed to enumerate sources: %v", err)}}
	}

	var warnings []domain.Warning
	byName := make(map[string]domain.SignalDefinition, len(docs))
	buckets := make(map[domain.SignalType][]string, len(bucketOrder))

	skip := func(w domain.Warning) {
		r.logger.Warn("skipping signal source",
			zap.String("origin", w.Origin),
			zap.String("signal", w.Name),
			zap.String("reason", w.Reason))
		r.metrics.RecordSourceSkipped(string(schema.KindSignal))
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
		def, err := parseSignal(doc.Origin, doc.Body, r.domain)
		if err != nil {
			skip(domain.Warning{Origin: doc.Origin, Reason: err.Error()})
			continue
		}

		if prev, dup := byName[def.Name]; dup {
			if r.policy == domain.DuplicateReject {
				skip(domain.Warning{
					Origin: doc.Origin,
					Name:   def.Name,
					Reason: fmt.Sprintf("duplicate of %s rejected", prev.Origin),
				})
				continue
			}
			r.logger.Warn("duplicate signal definition overwritten",
				zap.String("origin", doc.Origin),
				zap.String("signal", def.Name),
				zap.String("previous_origin", prev.Origin))
			warnings = append(warnings, domain.Warning{
				Origin: doc.Origin,
				Name:   def.Name,
				Reason: fmt.Sprintf("overwrites %s", prev.Origin),
			})
			if prev.SignalType != def.SignalType {
				buckets[prev.SignalType] = remove(buckets[prev.SignalType], def.Name)
				buckets[def.SignalType] = append(buckets[def.SignalType], def.Name)
			}
			byName[def.Name] = def
			continue
		}

		byName[def.Name] = def
		buckets[def.SignalType] = append(buckets[def.SignalType], def.Name)
	}

	r.mu.Lock()
	r.byName = byName
	r.buckets = buckets
	r.mu.Unlock()

	counts := r.Counts()
	r.logger.Info("feedback signals loaded",
		zap.String("domain", r.domain),
		zap.Int("metrics", counts.Metrics),
		zap.Int("outcomes", counts.Outcomes),
		zap.Int("advisors", counts.Advisors),
		zap.Int("skipped_sources", len(warnings)))
	return warnings
}

// Get looks a definition up by name across all buckets
func (r *Registry) Get(name string) (domain.SignalDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byName[name]
	return def, ok
}

// GetForUnit returns the definitions whose trigger names unit: metrics
// first, then outcomes, then advisors, each in load order
func (r *Registry) GetForUnit(unit string) []domain.SignalDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.SignalDefinition
	for _, t := range bucketOrder {
		for _, name := range r.buckets[t] {
			if def := r.byName[name]; def.Trigger.Includes(unit) {
				out = append(out, def)
			}
		}
	}
	return out
}

// GetByType returns the definitions of one type in load order
func (r *Registry) GetByType(t domain.SignalType) []domain.SignalDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := r.buckets[t]
	out := make([]domain.SignalDefinition, 0, len(names))
	for _, name := range names {
		out = append(out, r.byName[name])
	}
	return out
}

// All returns every definition, bucket by bucket
func (r *Registry) All() []domain.SignalDefinition {
	out := make([]domain.SignalDefinition, 0, r.Counts().Total)
	for _, t := range bucketOrder {
		out = append(out, r.GetByType(t)...)
	}
	return out
}

// Counts returns the number of definitions per type
func (r *Registry) Counts() Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := Counts{
		Metrics:  len(r.buckets[domain.SignalTypeMetric]),
		Outcomes: len(r.buckets[domain.SignalTypeOutcome]),
		Advisors: len(r.buckets[domain.SignalTypeAdvisor]),
	}
	c.Total = c.Metrics + c.Outcomes + c.Advisors
	return c
}

func remove(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
