package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"talentMarket/domain"

	"github.com/redis/go-redis/v9"
)

const replaceAttempts = 3

// RankingCache keeps a JSON copy of persisted ranked sets. Postgres stays
// authoritative. Generations publish with Replace, readers fill with Fill.
type RankingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// cachedSet carries the generation time so an older run never replaces a newer one.
type cachedSet struct {
	ComputedAt time.Time           `json:"computed_at"`
	Scores     []domain.MatchScore `json:"scores"`
}

func NewRankingCache(client *redis.Client, ttl time.Duration) *RankingCache {
	return &RankingCache{
		client: client,
		ttl:    ttl,
	}
}

// key format: "ranking:{direction}:{owner_id}"
func rankingKey(direction domain.Direction, ownerID string) string {
	return fmt.Sprintf("ranking:%s:%s", direction, ownerID)
}

func (r *RankingCache) Get(ctx context.Context, direction domain.Direction, ownerID string) ([]domain.MatchScore, bool, error) {
	set, ok, err := r.read(ctx, r.client, rankingKey(direction, ownerID))
	if err != nil || !ok {
		return nil, false, err
	}
	return set.Scores, true, nil
}

func (r *RankingCache) Fill(ctx context.Context, direction domain.Direction, ownerID string, scores []domain.MatchScore) error {
	data, err := encode(computedAt(scores), scores)
	if err != nil {
		return err
	}
	if err := r.client.SetNX(ctx, rankingKey(direction, ownerID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to fill ranked set in Redis: %w", err)
	}
	return nil
}

// Replace runs an optimistic WATCH/MULTI so a concurrent publish of a later
// run is never overwritten.
func (r *RankingCache) Replace(ctx context.Context, direction domain.Direction, ownerID string, at time.Time, scores []domain.MatchScore) error {
	key := rankingKey(direction, ownerID)
	data, err := encode(at, scores)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		current, ok, err := r.read(ctx, tx, key)
		if err != nil {
			return err
		}
		if ok && current.ComputedAt.After(at) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < replaceAttempts; i++ {
		err = r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to replace ranked set in Redis: %w", err)
	}
	return nil
}

func (r *RankingCache) Invalidate(ctx context.Context, direction domain.Direction, ownerID string) error {
	if err := r.client.Del(ctx, rankingKey(direction, ownerID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate ranked set: %w", err)
	}
	return nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RankingCache) read(ctx context.Context, c getter, key string) (cachedSet, bool, error) {
	val, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cachedSet{}, false, nil
		}
		return cachedSet{}, false, fmt.Errorf("failed to get ranked set from Redis: %w", err)
	}

	var set cachedSet
	if err := json.Unmarshal(val, &set); err != nil {
		return cachedSet{}, false, fmt.Errorf("failed to unmarshal ranked set: %w", err)
	}
	return set, true, nil
}

func encode(at time.Time, scores []domain.MatchScore) ([]byte, error) {
	data, err := json.Marshal(cachedSet{ComputedAt: at, Scores: scores})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ranked set: %w", err)
	}
	return data, nil
}

// computedAt is the generation time of a set read back from the database.
func computedAt(scores []domain.MatchScore) time.Time {
	if len(scores) == 0 {
		return time.Time{}
	}
	return scores[0].ComputedAt
}
