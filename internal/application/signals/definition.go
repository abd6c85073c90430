package signals

import (
	"fmt"

	"github.com/aescanero/datafabric/pkg/domain"
)

// parseSignal builds a definition from a document that already passed schema validation
func parseSignal(origin string, body map[string]interface{}, defaultDomain string) (domain.SignalDefinition, error) {
	metadata, _ := body["metadata"].(map[string]interface{})
	trigger, _ := body["emission_trigger"].(map[string]interface{})

	def := domain.SignalDefinition{
		Name:        str(metadata, "name", ""),
		Version:     str(metadata, "version", domain.DefaultVersion),
		Domain:      str(metadata, "domain", defaultDomain),
		SignalType:  domain.SignalType(str(body, "signal_type", "")),
		Description: str(body, "description", ""),
		Trigger: domain.EmissionTrigger{
			Condition:      domain.TriggerCondition(str(trigger, "condition", string(domain.TriggerAlways))),
			ExecutionUnits: stringList(trigger, "execution_units"),
		},
		Origin: origin,
	}
	def.Schema, _ = body["schema"].(map[string]interface{})

	if def.Name == "" {
		return domain.SignalDefinition{}, fmt.Errorf("metadata.name is required")
	}
	if !def.SignalType.Valid() {
		return domain.SignalDefinition{}, fmt.Errorf("invalid signal_type: %q", def.SignalType)
	}

	consumers, _ := body["intended_consumers"].([]interface{})
	for _, c := range consumers {
		entry, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		consumer := domain.SignalConsumer{Consumer: str(entry, "consumer", "")}
		for k, v := range entry {
			if k == "consumer" {
				continue
			}
			if consumer.Attributes == nil {
				consumer.Attributes = make(map[string]interface{})
			}
			consumer.Attributes[k] = v
		}
		def.IntendedConsumers = append(def.IntendedConsumers, consumer)
	}
	return def, nil
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
	raw, _ := m[key].([]interface{})
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
