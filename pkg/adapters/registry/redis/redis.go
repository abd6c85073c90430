package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/datafabric/pkg/domain"
)

const (
	capabilityPrefix = "datafabric:capabilities:"
	domainPrefix     = "datafabric:domains:"
)

// storedCapability is the JSON record kept under CapabilityKey(id)
type storedCapability struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Version         string                 `json:"version"`
	Domain          string                 `json:"domain"`
	CapabilityType  string                 `json:"capability_type"`
	Tags            []string               `json:"tags,omitempty"`
	Description     string                 `json:"description,omitempty"`
	InputContract   map[string]interface{} `json:"input_contract,omitempty"`
	OutputContract  map[string]interface{} `json:"output_contract,omitempty"`
	ConsumerIntents []string               `json:"consumer_intents,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	RegisteredAt    time.Time              `json:"registered_at"`
}

// AssetRegistry implements ports.AssetRegistry on Redis. Each registration
// is a JSON string; a set per domain indexes the ids it owns.
type AssetRegistry struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewAssetRegistry creates a Redis asset registry
func NewAssetRegistry(client *redis.Client, logger *zap.Logger) (*AssetRegistry, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetRegistry{client: client, logger: logger, now: time.Now}, nil
}

// RegisterCapability stores reg under a fresh id and indexes it by domain
func (r *AssetRegistry) RegisterCapability(ctx context.Context, reg domain.CapabilityRegistration) (string, error) {
	if reg.Name == "" {
		return "", errors.New("capability name is required")
	}

	rec := storedCapability{
		ID:              uuid.NewString(),
		Name:            reg.Name,
		Version:         reg.Version,
		Domain:          reg.Domain,
		CapabilityType:  reg.CapabilityType,
		Tags:            reg.Tags,
		Description:     reg.Description,
		InputContract:   reg.InputContract,
		OutputContract:  reg.OutputContract,
		ConsumerIntents: reg.ConsumerIntents,
		Metadata:        reg.Metadata,
		RegisteredAt:    r.now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal capability: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, CapabilityKey(rec.ID), data, 0)
		pipe.SAdd(ctx, DomainKey(rec.Domain), rec.ID)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to save capability: %w", err)
	}

	r.logger.Debug("capability stored",
		zap.String("capability_id", rec.ID),
		zap.String("name", rec.Name),
		zap.String("domain", rec.Domain))
	return rec.ID, nil
}

// UnregisterCapability deletes a registration; false means the id is unknown
func (r *AssetRegistry) UnregisterCapability(ctx context.Context, id string) (bool, error) {
	rec, err := r.load(ctx, id)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	var deleted *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, CapabilityKey(id))
		pipe.SRem(ctx, DomainKey(rec.Domain), id)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete capability: %w", err)
	}
	return deleted.Val() > 0, nil
}

// ListByDomain returns the registrations indexed under domainName sorted by
// name. Index entries whose record is gone are pruned.
func (r *AssetRegistry) ListByDomain(ctx context.Context, domainName string) ([]domain.RegisteredCapability, error) {
	ids, err := r.client.SMembers(ctx, DomainKey(domainName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list domain index: %w", err)
	}
	out := make([]domain.RegisteredCapability, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = CapabilityKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get capabilities: %w", err)
	}

	var stale []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var rec storedCapability
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			r.logger.Warn("failed to unmarshal capability",
				zap.String("capability_id", ids[i]),
				zap.Error(err))
			continue
		}
		out = append(out, rec.listing())
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, DomainKey(domainName), stale...).Err(); err != nil {
			r.logger.Warn("failed to prune domain index",
				zap.String("domain", domainName),
				zap.Error(err))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// load returns nil without error when id is not stored
func (r *AssetRegistry) load(ctx context.Context, id string) (*storedCapability, error) {
	data, err := r.client.Get(ctx, CapabilityKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get capability: %w", err)
	}
	var rec storedCapability
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal capability: %w", err)
	}
	return &rec, nil
}

func (s storedCapability) listing() domain.RegisteredCapability {
	return domain.RegisteredCapability{
		ID:             s.ID,
		Name:           s.Name,
		Version:        s.Version,
		Domain:         s.Domain,
		CapabilityType: s.CapabilityType,
		RegisteredAt:   s.RegisteredAt,
	}
}

// CapabilityKey returns the key holding the registration record for id
func CapabilityKey(id string) string {
	return capabilityPrefix + id
}

// DomainKey returns the key of the set indexing a domain's registrations
func DomainKey(domainName string) string {
	return domainPrefix + domainName + ":capabilities"
}
