package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentMarket/domain"
	"talentMarket/internal/repository/memory"
	"talentMarket/pkg/metrics"
)

func newTestService(t *testing.T) (*Service, func() time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	return NewService(memory.NewStore(), clock), clock
}

func fund(t *testing.T, svc *Service, companyID string, amount int64) domain.Wallet {
	t.Helper()
	res, err := svc.TopUp(context.Background(), companyID, amount, "seed-"+companyID)
	require.NoError(t, err)
	w, err := svc.WalletForCompany(context.Background(), companyID)
	require.NoError(t, err)
	require.Equal(t, res.Balance, w.Balance)
	return w
}

func TestDebitAndCredit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := fund(t, svc, "CO1", 50)

	res, err := svc.Debit(ctx, w.ID, 10, domain.ReasonUnlock, "R1")
	require.NoError(t, err)
	assert.False(t, res.AlreadyApplied)
	assert.Equal(t, int64(40), res.Balance)
	assert.Equal(t, int64(-10), res.Entry.Delta)
	assert.Equal(t, domain.EntryDebit, res.Entry.EntryType)

	res, err = svc.Credit(ctx, w.ID, 10, domain.ReasonRefund, "R1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.Balance)
	assert.Equal(t, int64(10), res.Entry.Delta)
}

func TestDebitIsIdempotentPerReference(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := fund(t, svc, "CO1", 50)

	first, err := svc.Debit(ctx, w.ID, 10, domain.ReasonUnlock, "R1")
	require.NoError(t, err)

	second, err := svc.Debit(ctx, w.ID, 10, domain.ReasonUnlock, "R1")
	require.NoError(t, err)
	assert.True(t, second.AlreadyApplied)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.Equal(t, int64(40), second.Balance)

	entries, err := svc.Statement(ctx, "CO1", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDebitFailsClosedOnInsufficientBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := fund(t, svc, "CO1", 5)

	_, err := svc.Debit(ctx, w.ID, 10, domain.ReasonUnlock, "R1")
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, domain.KindInsufficientBalance, domain.KindOf(err))

	after, err := svc.WalletForCompany(ctx, "CO1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), after.Balance)

	entries, err := svc.Statement(ctx, "CO1", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEntryValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := fund(t, svc, "CO1", 50)

	cases := []struct {
		name     string
		walletID string
		amount   int64
		reason   string
		ref      string
	}{
		{"zero amount", w.ID, 0, domain.ReasonUnlock, "R1"},
		{"negative amount", w.ID, -5, domain.ReasonUnlock, "R1"},
		{"missing reference", w.ID, 5, domain.ReasonUnlock, ""},
		{"missing reason", w.ID, 5, "", "R1"},
		{"missing wallet", "", 5, domain.ReasonUnlock, "R1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Debit(ctx, tc.walletID, tc.amount, tc.reason, tc.ref)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err := svc.Debit(ctx, "nope", 5, domain.ReasonUnlock, "R1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := fund(t, svc, "CO1", 30)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Debit(ctx, w.ID, 10, domain.ReasonUnlock, fmt.Sprintf("R%d", i))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if assert.ErrorIs(t, err, domain.ErrInsufficientBalance) {
				rejected++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 7, rejected)

	rec, err := svc.Reconcile(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.Equal(t, int64(0), rec.Balance)
	assert.Equal(t, int64(4), rec.EntryCount)
}

func TestStatementWindow(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	w := fund(t, svc, "CO1", 100)

	mid := clock()
	for i := 0; i < 3; i++ {
		_, err := svc.Debit(ctx, w.ID, 1, domain.ReasonUnlock, fmt.Sprintf("R%d", i))
		require.NoError(t, err)
	}

	entries, err := svc.Statement(ctx, "CO1", mid, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "R2", entries[0].ReferenceID)
	assert.Equal(t, "R0", entries[2].ReferenceID)

	entries, err = svc.Statement(ctx, "CO1", time.Time{}, mid, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntryCredit, entries[0].EntryType)

	entries, err = svc.Statement(ctx, "CO1", time.Time{}, time.Time{}, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = svc.Statement(ctx, "CO1", mid, mid, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReconcileAll(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, svc, "CO1", 20)
	w2 := fund(t, svc, "CO2", 15)
	_, err := svc.Debit(ctx, w2.ID, 5, domain.ReasonUnlock, "R1")
	require.NoError(t, err)

	recs, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.True(t, rec.Consistent, rec.CompanyID)
	}
	assert.Equal(t, "CO2", recs[1].CompanyID)
	assert.Equal(t, int64(10), recs[1].LedgerSum)
}

func TestEnsureWalletIsStable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.EnsureWallet(ctx, "CO9")
	require.NoError(t, err)
	b, err := svc.EnsureWallet(ctx, "CO9")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Zero(t, b.Balance)

	_, err = svc.EnsureWallet(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReferenceReusedWithOtherReason(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	w := fund(t, svc, "CO1", 20)

	// the top-up credit already owns this reference
	_, err := svc.Credit(ctx, w.ID, 20, domain.ReasonRefund, "seed-CO1")
	require.ErrorIs(t, err, domain.ErrValidation)

	after, err := svc.WalletForCompany(ctx, "CO1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), after.Balance)
}

func TestEntryMetricCountsCommittedEntriesOnly(t *testing.T) {
	store := memory.NewStore()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(store, func() time.Time { return at })
	ctx := context.Background()

	w, err := svc.EnsureWallet(ctx, "CO1")
	require.NoError(t, err)
	counter := metrics.LedgerEntriesTotal.WithLabelValues(string(domain.EntryCredit), domain.ReasonRefund)
	before := testutil.ToFloat64(counter)

	err = store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if _, err := svc.ApplyCredit(ctx, repos, w.ID, 5, domain.ReasonRefund, "R1", at); err != nil {
			return err
		}
		return errors.New("later step failed")
	})
	require.Error(t, err)
	assert.Equal(t, before, testutil.ToFloat64(counter))

	_, err = svc.Credit(ctx, w.ID, 5, domain.ReasonRefund, "R1")
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	replay, err := svc.Credit(ctx, w.ID, 5, domain.ReasonRefund, "R1")
	require.NoError(t, err)
	assert.True(t, replay.AlreadyApplied)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
