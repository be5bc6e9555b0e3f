package ranking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentMarket/business/pipeline"
	"talentMarket/business/scoring"
	"talentMarket/business/suppression"
	"talentMarket/domain"
	"talentMarket/internal/repository/memory"
)

// fixedScorer returns preset sub-scores per candidate and weighs them with
// the default weights.
type fixedScorer struct {
	weights scoring.Weights
	sub     map[string]map[string]float64
}

func (f fixedScorer) Score(c domain.Candidate, j domain.Job) domain.MatchScore {
	sub := f.sub[c.ID]
	if sub == nil {
		sub = f.sub[j.ID]
	}
	return domain.MatchScore{
		JobID:       j.ID,
		CandidateID: c.ID,
		Subscores:   sub,
		Composite:   f.weights.Composite(sub),
	}
}

func uniform(v float64) map[string]float64 {
	out := make(map[string]float64, len(domain.SubscoreNames))
	for _, n := range domain.SubscoreNames {
		out[n] = v
	}
	return out
}

type fakeCache struct {
	sets        map[string][]domain.MatchScore
	computed    map[string]time.Time
	invalidated []string
	// beforeFill runs once, between a reader's database load and its fill
	beforeFill func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{sets: map[string][]domain.MatchScore{}, computed: map[string]time.Time{}}
}

func (f *fakeCache) key(d domain.Direction, owner string) string { return string(d) + ":" + owner }

func (f *fakeCache) Get(_ context.Context, d domain.Direction, owner string) ([]domain.MatchScore, bool, error) {
	v, ok := f.sets[f.key(d, owner)]
	return v, ok, nil
}

func (f *fakeCache) Fill(_ context.Context, d domain.Direction, owner string, scores []domain.MatchScore) error {
	if hook := f.beforeFill; hook != nil {
		f.beforeFill = nil
		hook()
	}
	if _, ok := f.sets[f.key(d, owner)]; ok {
		return nil
	}
	f.sets[f.key(d, owner)] = scores
	return nil
}

func (f *fakeCache) Replace(_ context.Context, d domain.Direction, owner string, at time.Time, scores []domain.MatchScore) error {
	k := f.key(d, owner)
	if prev, ok := f.computed[k]; ok && prev.After(at) {
		return nil
	}
	f.sets[k] = scores
	f.computed[k] = at
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, d domain.Direction, owner string) error {
	delete(f.sets, f.key(d, owner))
	delete(f.computed, f.key(d, owner))
	f.invalidated = append(f.invalidated, f.key(d, owner))
	return nil
}

type fixture struct {
	svc      *Service
	supp     *suppression.Service
	pipeline *pipeline.Service
	store    *memory.Store
	cache    *fakeCache
	now      *time.Time
}

func newFixture(t *testing.T, scorer Scorer) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := &fixture{store: memory.NewStore(), cache: newFakeCache(), now: &now}
	clock := func() time.Time { return *f.now }
	f.supp = suppression.NewService(f.store, suppression.Config{}, clock)
	f.pipeline = pipeline.NewService(f.store, f.supp, clock)
	f.svc = NewService(f.store, scorer, f.pipeline, f.cache, Config{DefaultK: 10, MaxK: 50}, clock)
	return f
}

func (f *fixture) seed(t *testing.T, jobs []domain.Job, candidates []domain.Candidate) {
	t.Helper()
	err := f.store.WithinTx(context.Background(), func(ctx context.Context, repos domain.Repositories) error {
		for i := range jobs {
			if err := repos.Catalog.UpsertJob(ctx, &jobs[i]); err != nil {
				return err
			}
		}
		for i := range candidates {
			if err := repos.Catalog.UpsertCandidate(ctx, &candidates[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func scenarioScorer() fixedScorer {
	return fixedScorer{
		weights: scoring.DefaultWeights(),
		sub: map[string]map[string]float64{
			"C1": {
				domain.SubscoreSkill:    0.9,
				domain.SubscoreCommute:  0.5,
				domain.SubscoreLanguage: 1.0,
				domain.SubscoreBenefits: 0.4,
				domain.SubscoreQuality:  0.8,
			},
			"C2": uniform(0.5),
		},
	}
}

func ids(scores []domain.MatchScore) []string {
	out := make([]string, 0, len(scores))
	for _, s := range scores {
		out = append(out, s.CandidateID)
	}
	return out
}

func TestGenerateForJobRanksByComposite(t *testing.T) {
	f := newFixture(t, scenarioScorer())
	f.seed(t, []domain.Job{{ID: "J1", CompanyID: "companyA"}}, []domain.Candidate{{ID: "C1"}, {ID: "C2"}})
	ctx := context.Background()

	got, err := f.svc.GenerateForJob(ctx, "J1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "C1", got[0].CandidateID)
	assert.Equal(t, 1, got[0].Rank)
	assert.InDelta(t, 0.78, got[0].Composite, 1e-9)
	assert.Equal(t, "C2", got[1].CandidateID)
	assert.Equal(t, 2, got[1].Rank)
	assert.InDelta(t, 0.5, got[1].Composite, 1e-9)
	assert.Equal(t, got[0].RunID, got[1].RunID)
	assert.Equal(t, *f.now, got[0].ComputedAt)

	// persisted and readable in rank order
	listed, err := f.svc.ListForJob(ctx, "J1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1", "C2"}, ids(listed))
	assert.InDelta(t, 0.9, listed[0].Subscores[domain.SubscoreSkill], 1e-9)

	// surfaced candidates entered the funnel
	items, err := f.pipeline.ListByJob(ctx, "J1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, domain.StageNew, it.Stage)
	}
}

func TestRejectedCandidateDropsOutUntilCooldownEnds(t *testing.T) {
	f := newFixture(t, scenarioScorer())
	f.seed(t, []domain.Job{{ID: "J1", CompanyID: "companyA"}}, []domain.Candidate{{ID: "C1"}, {ID: "C2"}})
	ctx := context.Background()

	_, err := f.svc.GenerateForJob(ctx, "J1", 2)
	require.NoError(t, err)

	res, err := f.pipeline.Reject(ctx, pipeline.RejectRequest{JobID: "J1", CandidateID: "C2", ReasonCode: "not_qualified"})
	require.NoError(t, err)
	assert.Equal(t, f.now.AddDate(0, 0, 30), res.Suppression.ExpiresAt)

	got, err := f.svc.GenerateForJob(ctx, "J1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, ids(got))

	// just before expiry still excluded
	*f.now = res.Suppression.ExpiresAt.Add(-time.Second)
	got, err = f.svc.GenerateForJob(ctx, "J1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, ids(got))

	*f.now = res.Suppression.ExpiresAt
	got, err = f.svc.GenerateForJob(ctx, "J1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"C1", "C2"}, ids(got))
}

func TestTieBreaksAndDenseRank(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	scorer := fixedScorer{
		weights: scoring.DefaultWeights(),
		sub: map[string]map[string]float64{
			"A": uniform(0.7),
			"B": uniform(0.7),
			"C": uniform(0.7),
			"D": uniform(0.4),
			"E": uniform(0.1),
		},
	}
	f := newFixture(t, scorer)
	f.seed(t, []domain.Job{{ID: "J1", CompanyID: "companyA"}}, []domain.Candidate{
		{ID: "A", LastActiveAt: base},
		{ID: "B", LastActiveAt: base.Add(time.Hour)},
		{ID: "C", LastActiveAt: base},
		{ID: "D", LastActiveAt: base},
		{ID: "E", LastActiveAt: base},
	})

	got, err := f.svc.GenerateForJob(context.Background(), "J1", 4)
	require.NoError(t, err)

	// B is most recently active; A and C fall back to id order
	assert.Equal(t, []string{"B", "A", "C", "D"}, ids(got))
	ranks := []int{got[0].Rank, got[1].Rank, got[2].Rank, got[3].Rank}
	assert.Equal(t, []int{1, 1, 1, 2}, ranks)
	for i, m := range got {
		assert.Equal(t, i+1, m.Position)
	}
}

func TestGenerateReplacesPreviousSet(t *testing.T) {
	f := newFixture(t, scenarioScorer())
	f.seed(t, []domain.Job{{ID: "J1", CompanyID: "companyA"}}, []domain.Candidate{{ID: "C1"}, {ID: "C2"}})
	ctx := context.Background()

	first, err := f.svc.GenerateForJob(ctx, "J1", 2)
	require.NoError(t, err)
	_, err = f.svc.ListForJob(ctx, "J1")
	require.NoError(t, err)
	require.Contains(t, f.cache.sets, "job:J1")

	second, err := f.svc.GenerateForJob(ctx, "J1", 1)
	require.NoError(t, err)
	assert.NotEqual(t, first[0].RunID, second[0].RunID)
	require.Len(t, f.cache.sets["job:J1"], 1)
	assert.Equal(t, second[0].RunID, f.cache.sets["job:J1"][0].RunID)

	listed, err := f.svc.ListForJob(ctx, "J1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, second[0].RunID, listed[0].RunID)
}

func TestGenerateForCandidate(t *testing.T) {
	scorer := fixedScorer{
		weights: scoring.DefaultWeights(),
		sub: map[string]map[string]float64{
			"J1": uniform(0.3),
			"J2": uniform(0.9),
			"J3": uniform(0.6),
		},
	}
	f := newFixture(t, scorer)
	f.seed(t,
		[]domain.Job{
			{ID: "J1", CompanyID: "a", Country: "DE"},
			{ID: "J2", CompanyID: "a", Country: "FR"},
			{ID: "J3", CompanyID: "b", Country: "FR"},
		},
		[]domain.Candidate{{ID: "X", Country: "FR"}},
	)
	ctx := context.Background()

	_, err := f.supp.Suppress(ctx, suppression.SuppressRequest{JobID: "J2", CandidateID: "X", ReasonCode: "withdrawn"})
	require.NoError(t, err)

	got, err := f.svc.GenerateForCandidate(ctx, "X", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "J3", got[0].JobID)
	assert.Equal(t, domain.DirectionCandidate, got[0].Direction)

	listed, err := f.svc.ListForCandidate(ctx, "X")
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestGenerateValidation(t *testing.T) {
	f := newFixture(t, scenarioScorer())
	f.seed(t, []domain.Job{{ID: "J1", CompanyID: "companyA"}}, nil)
	ctx := context.Background()

	_, err := f.svc.GenerateForJob(ctx, "J1", -1)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.GenerateForJob(ctx, "J1", 51)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.GenerateForJob(ctx, "", 5)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.GenerateForJob(ctx, "missing", 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.svc.GenerateForJob(ctx, "J1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestComputeMatchScoreWithEngine(t *testing.T) {
	f := newFixture(t, scoring.NewEngine(scoring.DefaultConfig()))
	f.seed(t,
		[]domain.Job{{ID: "J1", CompanyID: "a", RequiredSkills: []string{"go", "sql"}, Remote: true}},
		[]domain.Candidate{{ID: "C1", Skills: []string{"Go"}, ProfileCompleteness: 1}},
	)

	m, err := f.svc.ComputeMatchScore(context.Background(), "C1", "J1")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m.Subscores[domain.SubscoreSkill], 1e-9)
	assert.InDelta(t, 1.0, m.Subscores[domain.SubscoreCommute], 1e-9)
	// 0.4*0.5 + 0.2*1 + 0.1*1
	assert.InDelta(t, 0.5, m.Composite, 1e-9)

	_, err = f.svc.ComputeMatchScore(context.Background(), "nobody", "J1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFinalizeOrderIsStableNearTies(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	build := func() []ranked {
		return []ranked{
			{score: domain.MatchScore{CandidateID: "a", Composite: 0.7}, recency: base.Add(2 * time.Hour), tiebreak: "a"},
			{score: domain.MatchScore{CandidateID: "b", Composite: 0.7 + 6e-10}, recency: base, tiebreak: "b"},
			{score: domain.MatchScore{CandidateID: "c", Composite: 0.7 + 1.2e-9}, recency: base.Add(time.Hour), tiebreak: "c"},
		}
	}

	forward := finalize(build(), 3, domain.DirectionJob, base)
	items := build()
	items[0], items[2] = items[2], items[0]
	reversed := finalize(items, 3, domain.DirectionJob, base)

	assert.Equal(t, []string{"c", "b", "a"}, ids(forward))
	assert.Equal(t, ids(forward), ids(reversed))
	assert.Equal(t, []int{1, 1, 2}, []int{forward[0].Rank, forward[1].Rank, forward[2].Rank})
}

func TestSlowReaderCannotRestoreSupersededSet(t *testing.T) {
	f := newFixture(t, scenarioScorer())
	f.seed(t, []domain.Job{{ID: "J1", CompanyID: "companyA"}}, []domain.Candidate{{ID: "C1"}, {ID: "C2"}})
	ctx := context.Background()

	_, err := f.svc.GenerateForJob(ctx, "J1", 2)
	require.NoError(t, err)
	_, err = f.pipeline.Reject(ctx, pipeline.RejectRequest{JobID: "J1", CandidateID: "C2", ReasonCode: "not_qualified"})
	require.NoError(t, err)

	// the cached entry expired; a reader loads [C1 C2] and a generation
	// commits before the reader fills the cache
	require.NoError(t, f.cache.Invalidate(ctx, domain.DirectionJob, "J1"))
	f.cache.beforeFill = func() {
		*f.now = f.now.Add(time.Minute)
		_, err := f.svc.GenerateForJob(ctx, "J1", 2)
		require.NoError(t, err)
	}

	stale, err := f.svc.ListForJob(ctx, "J1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1", "C2"}, ids(stale))

	got, err := f.svc.ListForJob(ctx, "J1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, ids(got))
}

func TestOlderGenerationDoesNotReplaceNewerCache(t *testing.T) {
	f := newFixture(t, scenarioScorer())
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	newer := []domain.MatchScore{{CandidateID: "C1", RunID: "new"}}
	older := []domain.MatchScore{{CandidateID: "C2", RunID: "old"}}
	f.svc.publish(ctx, domain.DirectionJob, "J1", at, newer)
	f.svc.publish(ctx, domain.DirectionJob, "J1", at.Add(-time.Second), older)

	got, ok, err := f.cache.Get(ctx, domain.DirectionJob, "J1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got[0].RunID)
}
