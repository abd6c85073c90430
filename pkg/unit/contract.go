package unit

import (
	"context"
	"errors"
	"fmt"

	"github.com/aescanero/datafabric/pkg/domain"
)

// CodeUnclassified is returned when a capability fails in a way no failure mode anticipates
const CodeUnclassified = "UNCLASSIFIED_FAILURE"

// Flag marks a degraded but non-fatal outcome
type Flag string

const (
	FlagTruncated     Flag = "is_truncated"
	FlagLowConfidence Flag = "low_confidence"
	FlagInconclusive  Flag = "is_inconclusive"
	FlagStaleSignals  Flag = "has_stale_signals"
)

// Output is the result-or-error value every unit returns.
// Exactly one of Result and ErrorCode is set.
type Output[R any] struct {
	Result       *R            `json:"result"`
	ErrorCode    string        `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Flags        map[Flag]bool `json:"flags,omitempty"`
}

// Succeed builds a successful output, optionally raising degraded flags
func Succeed[R any](result R, flags ...Flag) Output[R] {
	out := Output[R]{Result: &result}
	for _, f := range flags {
		if out.Flags == nil {
			out.Flags = make(map[Flag]bool, len(flags))
		}
		out.Flags[f] = true
	}
	return out
}

// Fail builds a failed output carrying a stable error code
func Fail[R any](code, message string) Output[R] {
	return Output[R]{ErrorCode: code, ErrorMessage: message}
}

// Succeeded reports whether the unit produced a result
func (o Output[R]) Succeeded() bool {
	return o.ErrorCode == "" && o.Result != nil
}

// Failed reports whether the unit reported an error code
func (o Output[R]) Failed() bool {
	return !o.Succeeded()
}

// Has reports whether a degraded flag is raised
func (o Output[R]) Has(f Flag) bool {
	return o.Flags[f]
}

// Unit is the single operation an execution unit exposes.
// Capabilities (readers, writers, resolvers) are fields of the concrete unit,
// set at construction; Execute must not retain state between calls.
type Unit[I, R any] interface {
	Execute(ctx context.Context, input I, tenant domain.TenantContext) Output[R]
}

// Func adapts a plain function to Unit
type Func[I, R any] func(ctx context.Context, input I, tenant domain.TenantContext) Output[R]

// Execute calls f
func (f Func[I, R]) Execute(ctx context.Context, input I, tenant domain.TenantContext) Output[R] {
	return f(ctx, input, tenant)
}

// CapabilityError is returned by injected capabilities to name the failure mode that occurred
type CapabilityError struct {
	Code string
	Err  error
}

func (e *CapabilityError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// NewCapabilityError wraps err with a failure-mode code
func NewCapabilityError(code string, err error) error {
	return &CapabilityError{Code: code, Err: err}
}

// Classify maps a capability error to one of the declared failure-mode codes.
// Errors that do not carry a declared code map to CodeUnclassified.
func Classify(err error, modes []FailureMode) string {
	var capErr *CapabilityError
	if !errors.As(err, &capErr) {
		return CodeUnclassified
	}
	for _, m := range modes {
		if m.Code == capErr.Code {
			return m.Code
		}
	}
	return CodeUnclassified
}

// FailFrom converts a capability error into a failed output using the unit's failure modes
func FailFrom[R any](d Descriptor, err error) Output[R] {
	code := Classify(err, d.FailureModes)
	return Fail[R](code, err.Error())
}

// Guard runs u and converts a panic inside it into a CodeUnclassified failure,
// so a faulty unit never surfaces a raw fault to its caller
func Guard[I, R any](ctx context.Context, u Unit[I, R], input I, tenant domain.TenantContext) (out Output[R]) {
	defer func() {
		if r := recover(); r != nil {
			out = Fail[R](CodeUnclassified, fmt.Sprintf("unit panicked: %v", r))
		}
	}()
	return u.Execute(ctx, input, tenant)
}
