// Package scoring computes the deterministic composite match score for a
// (candidate, job) pair. Nothing here does I/O.
package scoring

import (
	"math"
	"strings"

	"talentMarket/domain"
)

const (
	defaultVacuousSkillScore = 1.0
	defaultMaxCommuteKm      = 50.0
	earthRadiusKm            = 6371.0
)

type Config struct {
	Weights Weights

	// skill sub-score for a job that requires no skills
	VacuousSkillScore float64

	// distance at which commute fit reaches 0
	MaxCommuteKm float64
}

func DefaultConfig() Config {
	return Config{
		Weights:           DefaultWeights(),
		VacuousSkillScore: defaultVacuousSkillScore,
		MaxCommuteKm:      defaultMaxCommuteKm,
	}
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if len(cfg.Weights) == 0 {
		cfg.Weights = DefaultWeights()
	}
	if cfg.MaxCommuteKm <= 0 {
		cfg.MaxCommuteKm = defaultMaxCommuteKm
	}
	cfg.VacuousSkillScore = clamp01(cfg.VacuousSkillScore)
	return &Engine{cfg: cfg}
}

func (e *Engine) Weights() Weights {
	return e.cfg.Weights
}

// Score returns the composite and every sub-score. ComputedAt and Rank are
// left for the caller.
func (e *Engine) Score(c domain.Candidate, j domain.Job) domain.MatchScore {
	sub := e.Subscores(c, j)
	return domain.MatchScore{
		JobID:       j.ID,
		CandidateID: c.ID,
		Subscores:   sub,
		Composite:   e.cfg.Weights.Composite(sub),
	}
}

func (e *Engine) Subscores(c domain.Candidate, j domain.Job) map[string]float64 {
	return map[string]float64{
		domain.SubscoreSkill:    e.skillOverlap(c, j),
		domain.SubscoreCommute:  commuteFit(c, j, e.cfg.MaxCommuteKm),
		domain.SubscoreLanguage: coverage(j.RequiredLanguages, c.Languages),
		domain.SubscoreBenefits: coverage(c.DesiredBenefits, j.Benefits),
		domain.SubscoreQuality:  clamp01(c.ProfileCompleteness),
	}
}

func (e *Engine) skillOverlap(c domain.Candidate, j domain.Job) float64 {
	if len(normalizeSet(j.RequiredSkills)) == 0 {
		return e.cfg.VacuousSkillScore
	}
	return coverage(j.RequiredSkills, c.Skills)
}

// coverage is the share of wanted that offered has. Empty on either side is 0.
func coverage(wanted, offered []string) float64 {
	w := normalizeSet(wanted)
	o := normalizeSet(offered)
	if len(w) == 0 || len(o) == 0 {
		return 0
	}
	hit := 0
	for k := range w {
		if o[k] {
			hit++
		}
	}
	return float64(hit) / float64(len(w))
}

func commuteFit(c domain.Candidate, j domain.Job, maxKm float64) float64 {
	if j.Remote {
		return 1
	}
	if c.Latitude != nil && c.Longitude != nil && j.Latitude != nil && j.Longitude != nil {
		d := haversineKm(*c.Latitude, *c.Longitude, *j.Latitude, *j.Longitude)
		if d >= maxKm {
			return 0
		}
		return 1 - d/maxKm
	}
	if c.City == "" || j.City == "" {
		return 0
	}
	if !strings.EqualFold(strings.TrimSpace(c.City), strings.TrimSpace(j.City)) {
		return 0
	}
	if c.Country != "" && j.Country != "" && !strings.EqualFold(c.Country, j.Country) {
		return 0
	}
	return 1
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

func normalizeSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		it = strings.ToLower(strings.TrimSpace(it))
		if it != "" {
			out[it] = true
		}
	}
	return out
}
