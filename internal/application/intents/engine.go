package intents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
)

// Error codes carried by a failed Decomposition
const (
	ErrUnsupportedIntent = "UNSUPPORTED_INTENT"
	ErrNoUnitsMapped     = "NO_UNITS_MAPPED"
	ErrSubmissionFailed  = "SUBMISSION_FAILED"
)

// Decomposition is the result of Decompose. On failure only Success,
// IntentID, IntentType, Domain, ErrorCode and Error are meaningful.
type Decomposition struct {
	Success    bool              `json:"success"`
	IntentID   uuid.UUID         `json:"intent_id"`
	IntentType string            `json:"intent_type"`
	Domain     string            `json:"domain"`
	Units      []domain.UnitSpec `json:"execution_units,omitempty"`
	UnitCount  int               `json:"unit_count"`
	ErrorCode  string            `json:"error_code,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Engine decomposes intents into ordered execution unit specs
type Engine struct {
	table     map[string][]domain.ExecutionUnitRef
	submitter ports.IntentSubmitter
	metrics   ports.MetricsCollector
	logger    *zap.Logger
	domain    string
}

// Option configures an Engine
type Option func(*Engine)

// WithDomain sets the domain tag stamped on every unit spec
func WithDomain(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.domain = name
		}
	}
}

// WithSubmitter notifies s of every computed decomposition. Without a
// submitter Decompose is a pure computation.
func WithSubmitter(s ports.IntentSubmitter) Option {
	return func(e *Engine) {
		e.submitter = s
	}
}

// NewEngine creates an engine over the data fabric intent table
func NewEngine(metrics ports.MetricsCollector, logger *zap.Logger, opts ...Option) *Engine {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		table:   defaultTable,
		metrics: metrics,
		logger:  logger,
		domain:  domain.DefaultDomain,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsSupported reports whether intentType is in the table
func (e *Engine) IsSupported(intentType string) bool {
	_, ok := e.table[intentType]
	return ok
}

// SupportedIntents returns every supported intent type, sorted
func (e *Engine) SupportedIntents() []string {
	out := make([]string, 0, len(e.table))
	for t := range e.table {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of supported intent types
func (e *Engine) Count() int {
	return len(e.table)
}

// UnitsFor returns a copy of the units mapped to intentType
func (e *Engine) UnitsFor(intentType string) ([]domain.ExecutionUnitRef, bool) {
	refs, ok := e.table[intentType]
	if !ok {
		return nil, false
	}
	out := make([]domain.ExecutionUnitRef, len(refs))
	for i, r := range refs {
		out[i] = domain.ExecutionUnitRef{
			Name:           r.Name,
			CapabilityType: r.CapabilityType,
			FieldMapping:   copyMapping(r.FieldMapping),
		}
	}
	return out, true
}

// Decompose builds the ordered unit specs for one intent instance. When a
// submitter is configured, a failed or refused submission turns the result
// into a failure that still carries the computed units.
func (e *Engine) Decompose(ctx context.Context, intentID uuid.UUID, intentType string, params map[string]interface{}) Decomposition {
	result := Decomposition{
		IntentID:   intentID,
		IntentType: intentType,
		Domain:     e.domain,
	}

	refs, ok := e.table[intentType]
	if !ok {
		e.metrics.RecordDecomposition("unsupported", "failed")
		e.logger.Debug("unsupported intent", zap.String("intent_type", intentType))
		return e.fail(result, ErrUnsupportedIntent, fmt.Sprintf("unsupported intent type: %s", intentType))
	}
	if len(refs) == 0 {
		e.metrics.RecordDecomposition(intentType, "failed")
		return e.fail(result, ErrNoUnitsMapped, fmt.Sprintf("no execution units mapped for intent: %s", intentType))
	}

	specs := make([]domain.UnitSpec, len(refs))
	for i, r := range refs {
		specs[i] = domain.UnitSpec{
			Name:           r.Name,
			CapabilityType: r.CapabilityType,
			FieldMapping:   copyMapping(r.FieldMapping),
			Domain:         e.domain,
			Inputs:         resolveInputs(r.FieldMapping, params),
		}
	}

	result.Units = specs
	result.UnitCount = len(specs)

	if e.submitter != nil {
		accepted, err := e.submitter.DecomposeIntent(ctx, intentID, specs)
		if err != nil || !accepted {
			msg := "intent submitter refused the decomposition"
			if err != nil {
				msg = fmt.Sprintf("failed to submit decomposition: %v", err)
			}
			e.logger.Warn("decomposition not published",
				zap.String("intent_id", intentID.String()),
				zap.String("intent_type", intentType),
				zap.String("reason", msg))
			e.metrics.RecordDecomposition(intentType, "failed")
			return e.fail(result, ErrSubmissionFailed, msg)
		}
	}

	result.Success = true
	e.metrics.RecordDecomposition(intentType, "success")
	e.logger.Debug("intent decomposed",
		zap.String("intent_id", intentID.String()),
		zap.String("intent_type", intentType),
		zap.Int("unit_count", len(specs)))
	return result
}

func (e *Engine) fail(d Decomposition, code, msg string) Decomposition {
	d.Success = false
	d.ErrorCode = code
	d.Error = msg
	return d
}

// resolveInputs follows each dotted parameter path; unresolved paths are omitted
func resolveInputs(mapping map[string]string, params map[string]interface{}) map[string]interface{} {
	if len(params) == 0 {
		return nil
	}
	var inputs map[string]interface{}
	for field, path := range mapping {
		v, ok := lookup(params, path)
		if !ok {
			continue
		}
		if inputs == nil {
			inputs = make(map[string]interface{}, len(mapping))
		}
		inputs[field] = v
	}
	return inputs
}

func lookup(params map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = params
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func copyMapping(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
