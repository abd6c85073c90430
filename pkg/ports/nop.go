package ports

import (
	"time"

	"github.com/aescanero/datafabric/pkg/domain"
)

// NopMetrics discards every metric. Components fall back to it when no collector is given.
type NopMetrics struct{}

func (NopMetrics) RecordSourceSkipped(string) {}
func (NopMetrics) RecordCapabilityRegistration(string) {}
func (NopMetrics) RecordCapabilityUnregistration(string) {}
func (NopMetrics) SetRegisteredCapabilities(int) {}
func (NopMetrics) RecordDecomposition(string, string) {}
func (NopMetrics) RecordEmission(domain.SignalType, string, time.Duration) {}
func (NopMetrics) RecordWorkerPoolStatus(int, int, int) {}
