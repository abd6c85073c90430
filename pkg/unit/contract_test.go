package unit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/datafabric/pkg/domain"
)

type probeInput struct {
	ConnectionRef string
}

type probeResult struct {
	HealthStatus string
}

// credentialResolver is the capability a connection probe is built with
type credentialResolver func(ctx context.Context, ref string) (string, error)

type connectionProbe struct {
	resolve credentialResolver
}

func (p connectionProbe) Execute(ctx context.Context, in probeInput, _ domain.TenantContext) Output[probeResult] {
	d, _ := Lookup("ConnectionProbe")
	if _, err := p.resolve(ctx, in.ConnectionRef); err != nil {
		return FailFrom[probeResult](d, err)
	}
	return Succeed(probeResult{HealthStatus: "healthy"})
}

var tenant = domain.TenantContext{OrganizationID: "org-1", WorkspaceID: "ws-1", UserID: "user-1"}

func TestSucceedAndFail(t *testing.T) {
	ok := Succeed(probeResult{HealthStatus: "healthy"})
	assert.True(t, ok.Succeeded())
	assert.False(t, ok.Failed())
	assert.Empty(t, ok.Flags)

	degraded := Succeed(probeResult{}, FlagTruncated)
	assert.True(t, degraded.Succeeded())
	assert.True(t, degraded.Has(FlagTruncated))
	assert.False(t, degraded.Has(FlagLowConfidence))

	failed := Fail[probeResult]("CONNECTION_FAILURE", "refused")
	assert.True(t, failed.Failed())
	assert.Nil(t, failed.Result)
	assert.Equal(t, "CONNECTION_FAILURE", failed.ErrorCode)
}

func TestUnitClassifiesCapabilityErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"declared code", NewCapabilityError("CREDENTIAL_UNAVAILABLE", errors.New("vault sealed")), "CREDENTIAL_UNAVAILABLE"},
		{"undeclared code", NewCapabilityError("DISK_FULL", nil), CodeUnclassified},
		{"plain error", errors.New("boom"), CodeUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := connectionProbe{resolve: func(context.Context, string) (string, error) { return "", tt.err }}
			out := p.Execute(context.Background(), probeInput{ConnectionRef: "pg-main"}, tenant)
			require.True(t, out.Failed())
			assert.Equal(t, tt.code, out.ErrorCode)
			assert.NotEmpty(t, out.ErrorMessage)
		})
	}
}

func TestUnitSucceedsWithInjectedCapability(t *testing.T) {
	p := connectionProbe{resolve: func(context.Context, string) (string, error) { return "secret", nil }}
	out := p.Execute(context.Background(), probeInput{ConnectionRef: "pg-main"}, tenant)
	require.True(t, out.Succeeded())
	assert.Equal(t, "healthy", out.Result.HealthStatus)
}

func TestClassifyUnwrapsWrappedErrors(t *testing.T) {
	d, _ := Lookup("DataExtractor")
	err := errors.Join(errors.New("context"), NewCapabilityError("QUOTA_EXCEEDED", nil))
	assert.Equal(t, "QUOTA_EXCEEDED", Classify(err, d.FailureModes))
}

func TestGuardRecoversPanics(t *testing.T) {
	var u Unit[probeInput, probeResult] = Func[probeInput, probeResult](
		func(context.Context, probeInput, domain.TenantContext) Output[probeResult] {
			panic("nil reader")
		})

	out := Guard(context.Background(), u, probeInput{}, tenant)
	require.True(t, out.Failed())
	assert.Equal(t, CodeUnclassified, out.ErrorCode)
	assert.Contains(t, out.ErrorMessage, "nil reader")
}

func TestGuardPassesThrough(t *testing.T) {
	u := Func[probeInput, probeResult](func(_ context.Context, in probeInput, tc domain.TenantContext) Output[probeResult] {
		assert.Equal(t, "org-1", tc.OrganizationID)
		return Succeed(probeResult{HealthStatus: in.ConnectionRef})
	})

	out := Guard[probeInput, probeResult](context.Background(), u, probeInput{ConnectionRef: "up"}, tenant)
	require.True(t, out.Succeeded())
	assert.Equal(t, "up", out.Result.HealthStatus)
}
