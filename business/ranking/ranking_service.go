package ranking

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"talentMarket/domain"
	"talentMarket/pkg/logger"
	"talentMarket/pkg/metrics"
	"talentMarket/pkg/trace"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	defaultK = 20
	maxK     = 200

	// composites are compared at nine decimal places; equal buckets share a rank
	scorePrecision = 1e9

	systemActor = "matching"
)

type Scorer interface {
	Score(c domain.Candidate, j domain.Job) domain.MatchScore
}

// PipelineEntrant puts newly surfaced candidates into the funnel.
type PipelineEntrant interface {
	EnterTx(ctx context.Context, repos domain.Repositories, jobID, candidateID, actor string, now time.Time) (domain.PipelineItem, bool, error)
}

// Cache holds persisted ranked sets for reads. It is never the source of truth.
type Cache interface {
	Get(ctx context.Context, direction domain.Direction, ownerID string) ([]domain.MatchScore, bool, error)
	// Fill stores a set read from the database only when nothing is cached,
	// so a slow reader cannot overwrite a set published after its read.
	Fill(ctx context.Context, direction domain.Direction, ownerID string, scores []domain.MatchScore) error
	// Replace stores a freshly committed set unless the cached one was
	// computed later.
	Replace(ctx context.Context, direction domain.Direction, ownerID string, computedAt time.Time, scores []domain.MatchScore) error
	Invalidate(ctx context.Context, direction domain.Direction, ownerID string) error
}

type Config struct {
	DefaultK int
	MaxK     int
}

type Service struct {
	tx       domain.Transactor
	scorer   Scorer
	pipeline PipelineEntrant
	cache    Cache
	cfg      Config
	clock    domain.Clock
}

// NewService wires the generator. cache may be nil.
func NewService(tx domain.Transactor, scorer Scorer, pipeline PipelineEntrant, cache Cache, cfg Config, clock domain.Clock) *Service {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = defaultK
	}
	if cfg.MaxK <= 0 {
		cfg.MaxK = maxK
	}
	if cfg.DefaultK > cfg.MaxK {
		cfg.DefaultK = cfg.MaxK
	}
	return &Service{
		tx:       tx,
		scorer:   scorer,
		pipeline: pipeline,
		cache:    cache,
		cfg:      cfg,
		clock:    clock,
	}
}

// GenerateForJob recomputes the top-k candidates for a job from scratch and
// replaces the stored set. k == 0 means the configured default.
func (s *Service) GenerateForJob(ctx context.Context, jobID string, k int) ([]domain.MatchScore, error) {
	k, err := s.resolveK(jobID, k)
	if err != nil {
		return nil, err
	}
	defer observe(domain.DirectionJob, time.Now())

	var (
		out        []domain.MatchScore
		computedAt time.Time
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		now := s.clock.Now()
		computedAt = now
		job, err := repos.Catalog.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		pool, err := repos.Catalog.CandidatePool(ctx, job)
		if err != nil {
			return err
		}
		suppressed, err := repos.Suppressions.ActiveForJob(ctx, jobID, now)
		if err != nil {
			return err
		}

		scored := make([]ranked, 0, len(pool))
		for _, c := range pool {
			if _, ok := suppressed[c.ID]; ok {
				continue
			}
			scored = append(scored, ranked{
				score:    s.scorer.Score(c, job),
				recency:  c.LastActiveAt,
				tiebreak: c.ID,
			})
		}

		out = finalize(scored, k, domain.DirectionJob, now)
		if err := repos.Matches.ReplaceSet(ctx, domain.DirectionJob, jobID, out); err != nil {
			return err
		}
		for _, m := range out {
			if _, _, err := s.pipeline.EnterTx(ctx, repos, m.JobID, m.CandidateID, systemActor, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logFailure(ctx, domain.DirectionJob, jobID, err)
		return nil, err
	}

	s.publish(ctx, domain.DirectionJob, jobID, computedAt, out)
	logger.Info("top-k generated",
		"trace_id", trace.TraceIDFromContext(ctx),
		"direction", domain.DirectionJob,
		"job_id", jobID,
		"k", k,
		"size", len(out),
	)
	return out, nil
}

// GenerateForCandidate is the mirror run: top-k jobs for one candidate.
// It does not touch the pipeline; the funnel belongs to jobs.
func (s *Service) GenerateForCandidate(ctx context.Context, candidateID string, k int) ([]domain.MatchScore, error) {
	k, err := s.resolveK(candidateID, k)
	if err != nil {
		return nil, err
	}
	defer observe(domain.DirectionCandidate, time.Now())

	var (
		out        []domain.MatchScore
		computedAt time.Time
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		now := s.clock.Now()
		computedAt = now
		cand, err := repos.Catalog.GetCandidate(ctx, candidateID)
		if err != nil {
			return err
		}
		pool, err := repos.Catalog.JobPool(ctx, cand)
		if err != nil {
			return err
		}
		suppressed, err := repos.Suppressions.ActiveForCandidate(ctx, candidateID, now)
		if err != nil {
			return err
		}

		scored := make([]ranked, 0, len(pool))
		for _, j := range pool {
			if _, ok := suppressed[j.ID]; ok {
				continue
			}
			scored = append(scored, ranked{
				score:    s.scorer.Score(cand, j),
				recency:  j.UpdatedAt,
				tiebreak: j.ID,
			})
		}

		out = finalize(scored, k, domain.DirectionCandidate, now)
		return repos.Matches.ReplaceSet(ctx, domain.DirectionCandidate, candidateID, out)
	})
	if err != nil {
		s.logFailure(ctx, domain.DirectionCandidate, candidateID, err)
		return nil, err
	}

	s.publish(ctx, domain.DirectionCandidate, candidateID, computedAt, out)
	logger.Info("top-k generated",
		"trace_id", trace.TraceIDFromContext(ctx),
		"direction", domain.DirectionCandidate,
		"candidate_id", candidateID,
		"k", k,
		"size", len(out),
	)
	return out, nil
}

// ListForJob reads the persisted set in rank order.
func (s *Service) ListForJob(ctx context.Context, jobID string) ([]domain.MatchScore, error) {
	return s.list(ctx, domain.DirectionJob, jobID, func(ctx context.Context, repos domain.Repositories) ([]domain.MatchScore, error) {
		if _, err := repos.Catalog.GetJob(ctx, jobID); err != nil {
			return nil, err
		}
		return repos.Matches.ListByJob(ctx, jobID)
	})
}

func (s *Service) ListForCandidate(ctx context.Context, candidateID string) ([]domain.MatchScore, error) {
	return s.list(ctx, domain.DirectionCandidate, candidateID, func(ctx context.Context, repos domain.Repositories) ([]domain.MatchScore, error) {
		if _, err := repos.Catalog.GetCandidate(ctx, candidateID); err != nil {
			return nil, err
		}
		return repos.Matches.ListByCandidate(ctx, candidateID)
	})
}

// ComputeMatchScore scores one pair without persisting anything.
func (s *Service) ComputeMatchScore(ctx context.Context, candidateID, jobID string) (domain.MatchScore, error) {
	var out domain.MatchScore
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		cand, err := repos.Catalog.GetCandidate(ctx, candidateID)
		if err != nil {
			return err
		}
		job, err := repos.Catalog.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		out = s.scorer.Score(cand, job)
		out.ComputedAt = s.clock.Now()
		return nil
	})
	return out, err
}

func (s *Service) list(ctx context.Context, direction domain.Direction, ownerID string, load func(context.Context, domain.Repositories) ([]domain.MatchScore, error)) ([]domain.MatchScore, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, direction, ownerID)
		if err != nil {
			logger.Warn("ranking cache read failed", "direction", direction, "owner_id", ownerID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	var out []domain.MatchScore
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		out, err = load(ctx, repos)
		return err
	})
	if err != nil {
		return nil, err
	}
	for i := range out {
		if err := decodeSubscores(&out[i]); err != nil {
			return nil, domain.Internalf("decode subscores for %s: %v", out[i].ID, err)
		}
	}
	sortByPosition(out)

	if s.cache != nil {
		if err := s.cache.Fill(ctx, direction, ownerID, out); err != nil {
			logger.Warn("ranking cache fill failed", "direction", direction, "owner_id", ownerID, "error", err)
		}
	}
	return out, nil
}

func (s *Service) resolveK(ownerID string, k int) (int, error) {
	if strings.TrimSpace(ownerID) == "" {
		return 0, domain.Validationf("owner id is required")
	}
	if k < 0 {
		return 0, domain.Validationf("k must not be negative")
	}
	if k == 0 {
		return s.cfg.DefaultK, nil
	}
	if k > s.cfg.MaxK {
		return 0, domain.Validationf("k must be at most %d", s.cfg.MaxK)
	}
	return k, nil
}

// publish puts a committed set in the cache. If that fails the entry is
// dropped so readers go back to the database.
func (s *Service) publish(ctx context.Context, direction domain.Direction, ownerID string, computedAt time.Time, scores []domain.MatchScore) {
	if s.cache == nil {
		return
	}
	err := s.cache.Replace(ctx, direction, ownerID, computedAt, scores)
	if err == nil {
		return
	}
	logger.Warn("ranking cache publish failed", "direction", direction, "owner_id", ownerID, "error", err)
	if err := s.cache.Invalidate(ctx, direction, ownerID); err != nil {
		logger.Warn("ranking cache invalidation failed", "direction", direction, "owner_id", ownerID, "error", err)
	}
}

func (s *Service) logFailure(ctx context.Context, direction domain.Direction, ownerID string, err error) {
	if domain.KindOf(err) != domain.KindInternal {
		return
	}
	logger.Error("top-k generation failed",
		"trace_id", trace.TraceIDFromContext(ctx),
		"direction", direction,
		"owner_id", ownerID,
		"error", err,
	)
}

type ranked struct {
	score    domain.MatchScore
	recency  time.Time
	tiebreak string
	bucket   int64
}

// finalize orders by composite desc, then recency desc, then id asc, keeps
// the first k and assigns dense ranks on the composite.
func finalize(items []ranked, k int, direction domain.Direction, now time.Time) []domain.MatchScore {
	for i := range items {
		items[i].bucket = scoreBucket(items[i].score.Composite)
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.bucket != b.bucket {
			return a.bucket > b.bucket
		}
		if !a.recency.Equal(b.recency) {
			return a.recency.After(b.recency)
		}
		return a.tiebreak < b.tiebreak
	})
	if len(items) > k {
		items = items[:k]
	}

	runID := uuid.NewString()
	out := make([]domain.MatchScore, 0, len(items))
	rank := 0
	for i, it := range items {
		if i == 0 || it.bucket != items[i-1].bucket {
			rank++
		}
		m := it.score
		m.ID = uuid.NewString()
		m.RunID = runID
		m.Direction = direction
		m.Rank = rank
		m.Position = i + 1
		m.ComputedAt = now
		m.SubscoresRaw = encodeSubscores(m.Subscores)
		out = append(out, m)
	}
	return out
}

func scoreBucket(composite float64) int64 {
	return int64(math.Round(composite * scorePrecision))
}

func sortByPosition(scores []domain.MatchScore) {
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Position < scores[j].Position })
}

func encodeSubscores(sub map[string]float64) datatypes.JSON {
	b, err := json.Marshal(sub)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}

func decodeSubscores(m *domain.MatchScore) error {
	if m.Subscores != nil || len(m.SubscoresRaw) == 0 {
		return nil
	}
	return json.Unmarshal(m.SubscoresRaw, &m.Subscores)
}

func observe(direction domain.Direction, start time.Time) {
	metrics.TopKGenerateSeconds.WithLabelValues(string(direction)).Observe(time.Since(start).Seconds())
}
