package domain

import "time"

// DefaultDomain is the namespace tag that owns every capability and signal shipped with this module
const DefaultDomain = "data-fabric"

// DefaultVersion is assumed when a declarative source omits metadata.version
const DefaultVersion = "1.0.0"

// StatelessTag must be carried by every execution unit capability
const StatelessTag = "stateless"

// SchedulingProfile carries the hints an external scheduler uses for placement.
// The registry stores and returns them; it never schedules anything itself.
type SchedulingProfile struct {
	ComputeClass string   `json:"compute_class"`
	MemoryClass  string   `json:"memory_class"`
	IOPattern    string   `json:"io_pattern"`
	Tags         []string `json:"tags"`
}

// HasTag reports whether the profile carries tag
func (p SchedulingProfile) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CapabilityCard is the parsed form of one declarative capability source
type CapabilityCard struct {
	Name            string                 `json:"name"`
	Version         string                 `json:"version"`
	Domain          string                 `json:"domain"`
	CapabilityType  string                 `json:"capability_type"`
	Tags            []string               `json:"tags"`
	Description     string                 `json:"description"`
	InputContract   map[string]interface{} `json:"input_contract"`
	OutputContract  map[string]interface{} `json:"output_contract"`
	ConsumerIntents []string               `json:"consumer_intents"`
	FailureModes    []string               `json:"failure_modes"`
	ADRReference    string                 `json:"adr_reference,omitempty"`
	Scheduling      SchedulingProfile      `json:"scheduling"`

	// Origin identifies the declarative source the card was parsed from
	Origin string `json:"origin,omitempty"`
}

// CapabilityRegistration is the request sent to the external asset registry
type CapabilityRegistration struct {
	Name            string
	Version         string
	Domain          string
	CapabilityType  string
	Tags            []string
	Description     string
	InputContract   map[string]interface{}
	OutputContract  map[string]interface{}
	ConsumerIntents []string
	Metadata        map[string]interface{}
}

// RegisteredCapability is what the asset registry reports back for a domain listing
type RegisteredCapability struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Version        string    `json:"version"`
	Domain         string    `json:"domain"`
	CapabilityType string    `json:"capability_type"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// ExecutionUnitRef points at one unit inside an intent decomposition.
// FieldMapping maps unit input field -> dotted intent parameter path.
type ExecutionUnitRef struct {
	Name           string            `json:"name"`
	CapabilityType string            `json:"capability_type"`
	FieldMapping   map[string]string `json:"field_mapping"`
}

// UnitSpec is the published form of an ExecutionUnitRef for one intent instance
type UnitSpec struct {
	Name           string                 `json:"name"`
	CapabilityType string                 `json:"capability_type"`
	FieldMapping   map[string]string      `json:"field_mapping"`
	Domain         string                 `json:"domain"`
	Inputs         map[string]interface{} `json:"inputs,omitempty"`
}

// LocalitySignal describes how close a data asset is to one execution environment
type LocalitySignal struct {
	AssetRef      string  `json:"asset_ref"`
	EnvironmentID string  `json:"environment_id"`
	LocalityType  string  `json:"locality_type"`
	TransferCost  float64 `json:"transfer_cost"`
	Confidence    float64 `json:"confidence"`
}
