package capabilities

import (
	"fmt"

	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/unit"
)

// fallback hints for cards that name no known unit and declare no scheduling block
const (
	fallbackComputeClass = "cpu-small"
	fallbackMemoryClass  = "low"
	fallbackIOPattern    = "unspecified"
)

// parseCard builds a card from a document that already passed schema validation
func parseCard(origin string, body map[string]interface{}, defaultDomain string) (domain.CapabilityCard, error) {
	metadata := object(body, "metadata")
	capability := object(body, "capability")

	card := domain.CapabilityCard{
		Name:            str(metadata, "name", ""),
		Version:         str(metadata, "version", domain.DefaultVersion),
		Domain:          str(metadata, "domain", defaultDomain),
		ADRReference:    str(metadata, "adr_reference", ""),
		CapabilityType:  str(capability, "type", ""),
		Tags:            stringList(capability, "tags"),
		Description:     str(capability, "description", ""),
		InputContract:   object(body, "input_contract"),
		OutputContract:  object(body, "output_contract"),
		ConsumerIntents: stringList(body, "consumer_intents"),
		FailureModes:    stringList(body, "failure_modes"),
		Origin:          origin,
	}
	if card.Name == "" {
		return domain.CapabilityCard{}, fmt.Errorf("metadata.name is required")
	}
	if card.CapabilityType == "" {
		return domain.CapabilityCard{}, fmt.Errorf("capability.type is required")
	}
	card.Scheduling = scheduling(card, object(body, "scheduling"))
	return card, nil
}

// scheduling resolves hints from the unit catalogue, overridden field by
// field by the card's own scheduling block. The result always carries the
// stateless tag.
func scheduling(card domain.CapabilityCard, block map[string]interface{}) domain.SchedulingProfile {
	profile := domain.SchedulingProfile{
		ComputeClass: fallbackComputeClass,
		MemoryClass:  fallbackMemoryClass,
		IOPattern:    fallbackIOPattern,
		Tags:         append([]string(nil), card.Tags...),
	}
	if d, ok := unit.Lookup(card.Name); ok {
		profile = d.Profile
		profile.Tags = append([]string(nil), d.Profile.Tags...)
	}

	if block != nil {
		profile.ComputeClass = str(block, "compute_class", profile.ComputeClass)
		profile.MemoryClass = str(block, "memory_class", profile.MemoryClass)
		profile.IOPattern = str(block, "io_pattern", profile.IOPattern)
		if tags := stringList(block, "tags"); tags != nil {
			profile.Tags = tags
		}
	}

	if !profile.HasTag(domain.StatelessTag) {
		profile.Tags = append(profile.Tags, domain.StatelessTag)
	}
	return profile
}

func object(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]interface{})
	return v
}

func str(m map[string]interface{}, key, def string) string {
	if m == nil {
		return def
	}
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

func stringList(m map[string]interface{}, key string) []string {
	if m == nil {
		return nil
	}
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func schedulingMetadata(p domain.SchedulingProfile) map[string]interface{} {
	return map[string]interface{}{
		"compute_class": p.ComputeClass,
		"memory_class":  p.MemoryClass,
		"io_pattern":    p.IOPattern,
		"tags":          append([]string(nil), p.Tags...),
	}
}
