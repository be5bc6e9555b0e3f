package suppression

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentMarket/domain"
	"talentMarket/internal/repository/memory"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestService(t *testing.T) (*Service, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(memory.NewStore(), Config{}, clk.Now)
	return svc, clk
}

func TestSuppressUsesDefaultCooldown(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Suppress(ctx, SuppressRequest{JobID: "J1", CandidateID: "C2", ReasonCode: "not_qualified"})
	require.NoError(t, err)
	assert.Equal(t, clk.t.AddDate(0, 0, 30), entry.ExpiresAt)
	assert.Equal(t, "not_qualified", entry.ReasonCode)

	ok, err := svc.IsSuppressed(ctx, "J1", "C2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsSuppressed(ctx, "J1", "C1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSuppressionExpiresWithoutUnsuppress(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	_, err := svc.Suppress(ctx, SuppressRequest{JobID: "J1", CandidateID: "C1", Days: 2, ReasonCode: "cooldown"})
	require.NoError(t, err)

	clk.t = clk.t.Add(48*time.Hour - time.Nanosecond)
	ok, err := svc.IsSuppressed(ctx, "J1", "C1")
	require.NoError(t, err)
	assert.True(t, ok)

	// now == expires_at is no longer suppressed
	clk.t = clk.t.Add(time.Nanosecond)
	ok, err = svc.IsSuppressed(ctx, "J1", "C1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, active, err := svc.Active(ctx, "J1", "C1")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestSuppressReplacesExistingEntry(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	_, err := svc.Suppress(ctx, SuppressRequest{JobID: "J1", CandidateID: "C1", Days: 30, ReasonCode: "a"})
	require.NoError(t, err)

	clk.t = clk.t.Add(24 * time.Hour)
	second, err := svc.Suppress(ctx, SuppressRequest{JobID: "J1", CandidateID: "C1", Days: 1, ReasonCode: "b"})
	require.NoError(t, err)

	entry, active, err := svc.Active(ctx, "J1", "C1")
	require.NoError(t, err)
	require.True(t, active)
	assert.Equal(t, second, entry)
	assert.Equal(t, clk.t.AddDate(0, 0, 1), entry.ExpiresAt)
	assert.Equal(t, "b", entry.ReasonCode)
}

func TestSuppressValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []SuppressRequest{
		{CandidateID: "C1", ReasonCode: "x"},
		{JobID: "J1", ReasonCode: "x"},
		{JobID: "J1", CandidateID: "C1"},
		{JobID: "J1", CandidateID: "C1", Days: -1, ReasonCode: "x"},
		{JobID: "J1", CandidateID: "C1", Days: 366, ReasonCode: "x"},
	}
	for _, req := range cases {
		_, err := svc.Suppress(ctx, req)
		assert.ErrorIs(t, err, domain.ErrValidation, "%+v", req)
	}
}
