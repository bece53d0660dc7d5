package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "caretrail/pkg/domain"
)

const caregiverKeyPrefix = "evv:caregiver:"

// CachedCaregiverRegistry is a read-through decorator over a
// CaregiverRegistry. Cache failures degrade to the upstream call; a
// broken redis never makes a caregiver lookup fail.
type CachedCaregiverRegistry struct {
	upstream CaregiverRegistry
	cache    redis.Cmdable
	ttl      time.Duration
	logger   *slog.Logger
}

func NewCachedCaregiverRegistry(upstream CaregiverRegistry, cache redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedCaregiverRegistry {
	return &CachedCaregiverRegistry{
		upstream: upstream,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
	}
}

func (r *CachedCaregiverRegistry) GetCaregiverData(ctx context.Context, caregiverID id.CaregiverID) (*CaregiverData, error) {
	key := caregiverKeyPrefix + caregiverID.String()

	raw, err := r.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		var data CaregiverData
		if uerr := json.Unmarshal([]byte(raw), &data); uerr == nil {
			return &data, nil
		}
		// Corrupt entry: fall through to the upstream and overwrite.
	case !errors.Is(err, redis.Nil):
		r.logger.WarnContext(ctx, "caregiver cache read failed", "error", err)
	}

	data, err := r.upstream.GetCaregiverData(ctx, caregiverID)
	if err != nil {
		return nil, err
	}

	if payload, merr := json.Marshal(data); merr == nil {
		if serr := r.cache.Set(ctx, key, payload, r.ttl).Err(); serr != nil {
			r.logger.WarnContext(ctx, "caregiver cache write failed", "error", serr)
		}
	}
	return data, nil
}
