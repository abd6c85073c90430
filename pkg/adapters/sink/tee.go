package sink

import (
	"context"
	"errors"
	"time"

	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
)

// Tee hands every signal to all of its sinks in order. A signal is accepted
// only when every sink accepts it; errors from all sinks are joined.
type Tee []ports.ObservabilitySink

// NewTee builds a Tee, skipping nil sinks
func NewTee(sinks ...ports.ObservabilitySink) Tee {
	t := make(Tee, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			t = append(t, s)
		}
	}
	return t
}

// EmitMetric forwards a metric signal to every sink
func (t Tee) EmitMetric(ctx context.Context, name string, value map[string]interface{}, tenant domain.TenantContext, ts time.Time) (bool, error) {
	return t.each(func(s ports.ObservabilitySink) (bool, error) {
		return s.EmitMetric(ctx, name, value, tenant, ts)
	})
}

// EmitOutcome forwards an outcome signal to every sink
func (t Tee) EmitOutcome(ctx context.Context, name string, value map[string]interface{}, tenant domain.TenantContext, ts time.Time) (bool, error) {
	return t.each(func(s ports.ObservabilitySink) (bool, error) {
		return s.EmitOutcome(ctx, name, value, tenant, ts)
	})
}

// EmitAdvisor forwards an advisor signal to every sink
func (t Tee) EmitAdvisor(ctx context.Context, name string, value map[string]interface{}, tenant domain.TenantContext, consumer string, ts time.Time) (bool, error) {
	return t.each(func(s ports.ObservabilitySink) (bool, error) {
		return s.EmitAdvisor(ctx, name, value, tenant, consumer, ts)
	})
}

func (t Tee) each(call func(ports.ObservabilitySink) (bool, error)) (bool, error) {
	accepted := true
	var errs []error
	for _, s := range t {
		ok, err := call(s)
		if err != nil {
			errs = append(errs, err)
		}
		accepted = accepted && ok && err == nil
	}
	return accepted, errors.Join(errs...)
}
