package unlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentMarket/business/ledger"
	"talentMarket/business/pipeline"
	"talentMarket/business/refund"
	"talentMarket/business/suppression"
	"talentMarket/domain"
	"talentMarket/internal/repository/memory"
)

type fixture struct {
	svc      *Service
	ledger   *ledger.Service
	supp     *suppression.Service
	pipeline *pipeline.Service
	refund   *refund.Service
}

func newFixture(t *testing.T, balance int64) *fixture {
	t.Helper()
	clock := func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	store := memory.NewStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		for _, j := range []domain.Job{{ID: "J1", CompanyID: "companyA"}, {ID: "J2", CompanyID: "companyB"}} {
			if err := repos.Catalog.UpsertJob(ctx, &j); err != nil {
				return err
			}
		}
		for _, id := range []string{"C1", "C2"} {
			if err := repos.Catalog.UpsertCandidate(ctx, &domain.Candidate{ID: id}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	f := &fixture{}
	f.ledger = ledger.NewService(store, clock)
	f.supp = suppression.NewService(store, suppression.Config{}, clock)
	f.pipeline = pipeline.NewService(store, f.supp, clock)
	f.refund = refund.NewService(store, f.ledger, clock)
	f.svc = NewService(store, f.ledger, f.supp, f.pipeline, Config{Cost: 10}, clock)

	if balance > 0 {
		_, err := f.ledger.TopUp(ctx, "companyA", balance, "seed")
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	w, err := f.ledger.WalletForCompany(context.Background(), "companyA")
	require.NoError(t, err)
	return w.Balance
}

func req(candidateID string) UnlockRequest {
	return UnlockRequest{JobID: "J1", CandidateID: candidateID, CompanyID: "companyA", Actor: "recruiter-1"}
}

func TestUnlockChargesAndRunsOutOfBalance(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	res, err := f.svc.Unlock(ctx, req("C1"))
	require.NoError(t, err)
	assert.False(t, res.AlreadyGranted)
	assert.Equal(t, int64(0), res.Balance)
	assert.Equal(t, int64(10), res.Grant.Cost)
	assert.Equal(t, GrantReference("J1", "C1", "companyA"), res.Grant.ReferenceID)
	assert.Equal(t, domain.StageContacted, res.Stage)

	_, err = f.svc.Unlock(ctx, req("C2"))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, int64(0), f.balance(t))

	grants, err := f.svc.ListGrants(ctx, "companyA", "J1")
	require.NoError(t, err)
	assert.Len(t, grants, 1)

	_, found, err := itemFor(f, "C2")
	require.NoError(t, err)
	assert.False(t, found, "failed unlock must not touch the pipeline")
}

func TestUnlockTwiceChargesOnce(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	first, err := f.svc.Unlock(ctx, req("C1"))
	require.NoError(t, err)
	second, err := f.svc.Unlock(ctx, req("C1"))
	require.NoError(t, err)

	assert.True(t, second.AlreadyGranted)
	assert.Equal(t, first.Grant, second.Grant)
	assert.Equal(t, int64(20), second.Balance)
	assert.Equal(t, int64(20), f.balance(t))
}

func TestConcurrentUnlocksOfSamePairChargeOnce(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Unlock(ctx, req("C1"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(40), f.balance(t))
}

func TestSuppressedCandidateIsNotCharged(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.supp.Suppress(ctx, suppression.SuppressRequest{JobID: "J1", CandidateID: "C1", ReasonCode: "not_qualified"})
	require.NoError(t, err)

	_, err = f.svc.Unlock(ctx, req("C1"))
	assert.ErrorIs(t, err, domain.ErrSuppressedCandidate)
	assert.Equal(t, int64(10), f.balance(t))

	grants, err := f.svc.ListGrants(ctx, "companyA", "")
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestUnlockAdvancesOnlyEarlyStages(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	_, _, err := f.pipeline.Enter(ctx, "J1", "C2", "system")
	require.NoError(t, err)
	_, err = f.pipeline.Transition(ctx, pipeline.TransitionRequest{JobID: "J1", CandidateID: "C2", TargetStage: "Interview"})
	require.NoError(t, err)

	res, err := f.svc.Unlock(ctx, req("C2"))
	require.NoError(t, err)
	assert.Equal(t, domain.StageInterview, res.Stage)
}

func TestUnlockOwnershipAndWalletChecks(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.svc.Unlock(ctx, UnlockRequest{JobID: "J2", CandidateID: "C1", CompanyID: "companyA"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Unlock(ctx, UnlockRequest{JobID: "J2", CandidateID: "C1", CompanyID: "companyB"})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = f.svc.Unlock(ctx, UnlockRequest{JobID: "J1", CompanyID: "companyA"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRefundAfterUnlockRestoresBalance(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	res, err := f.svc.Unlock(ctx, req("C1"))
	require.NoError(t, err)

	credit, err := f.refund.Refund(ctx, refund.RefundRequest{CompanyID: "companyA", Amount: 10, ReferenceID: res.Grant.ReferenceID})
	require.NoError(t, err)
	assert.Equal(t, int64(10), credit.Balance)
	assert.Equal(t, int64(10), credit.Entry.Delta)

	// the grant survives the refund and is not charged again
	again, err := f.svc.Unlock(ctx, req("C1"))
	require.NoError(t, err)
	assert.True(t, again.AlreadyGranted)
	assert.Equal(t, int64(10), f.balance(t))
}

func TestGrantReferenceIsDeterministic(t *testing.T) {
	a := GrantReference("J1", "C1", "companyA")
	assert.Equal(t, a, GrantReference("J1", "C1", "companyA"))
	assert.NotEqual(t, a, GrantReference("J1", "C1", "companyB"))
}

func itemFor(f *fixture, candidateID string) (domain.PipelineItem, bool, error) {
	items, err := f.pipeline.ListByCandidate(context.Background(), candidateID)
	if err != nil || len(items) == 0 {
		return domain.PipelineItem{}, false, err
	}
	return items[0], true, nil
}
