//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"talentMarket/domain"
)

func TestRankingCacheRoundTrip(t *testing.T) {
	t.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	endpoint, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewRankingCache(client, time.Minute)

	_, ok, err := cache.Get(ctx, domain.DirectionJob, "J1")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	scores := []domain.MatchScore{{
		ID: "m1", JobID: "J1", CandidateID: "C1", Composite: 0.78, Rank: 1, Position: 1, ComputedAt: at,
		Subscores: map[string]float64{domain.SubscoreSkill: 0.9},
	}}
	require.NoError(t, cache.Replace(ctx, domain.DirectionJob, "J1", at, scores))

	got, ok, err := cache.Get(ctx, domain.DirectionJob, "J1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "C1", got[0].CandidateID)
	assert.InDelta(t, 0.9, got[0].Subscores[domain.SubscoreSkill], 1e-9)

	// a reader fill and an older run both leave the newer set in place
	stale := []domain.MatchScore{{ID: "m0", JobID: "J1", CandidateID: "C2", ComputedAt: at.Add(-time.Hour)}}
	require.NoError(t, cache.Fill(ctx, domain.DirectionJob, "J1", stale))
	require.NoError(t, cache.Replace(ctx, domain.DirectionJob, "J1", at.Add(-time.Hour), stale))
	got, _, err = cache.Get(ctx, domain.DirectionJob, "J1")
	require.NoError(t, err)
	assert.Equal(t, "C1", got[0].CandidateID)

	require.NoError(t, cache.Invalidate(ctx, domain.DirectionJob, "J1"))
	_, ok, err = cache.Get(ctx, domain.DirectionJob, "J1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Fill(ctx, domain.DirectionJob, "J1", stale))
	got, ok, err = cache.Get(ctx, domain.DirectionJob, "J1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "C2", got[0].CandidateID)
}
