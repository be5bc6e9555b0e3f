package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Direction tells which side of the pair owns a ranked set.
type Direction string

const (
	// DirectionJob: top-K candidates for one job.
	DirectionJob Direction = "job"
	// DirectionCandidate: top-K jobs for one candidate.
	DirectionCandidate Direction = "candidate"
)

// Sub-score names. Weight configuration may only use these.
const (
	SubscoreSkill    = "skill"
	SubscoreCommute  = "commute"
	SubscoreLanguage = "language"
	SubscoreBenefits = "benefits"
	SubscoreQuality  = "quality"
)

var SubscoreNames = []string{
	SubscoreSkill,
	SubscoreCommute,
	SubscoreLanguage,
	SubscoreBenefits,
	SubscoreQuality,
}

// MatchScore is one scored (job, candidate) pair. Rows are never edited;
// a new generation run replaces the whole ranked set.
type MatchScore struct {
	ID           string             `gorm:"column:id;primaryKey" json:"id"`
	RunID        string             `gorm:"column:run_id;not null" json:"run_id"`
	Direction    Direction          `gorm:"column:direction;not null;index:idx_match_scores_job,priority:1;index:idx_match_scores_candidate,priority:1" json:"direction"`
	JobID        string             `gorm:"column:job_id;not null;index:idx_match_scores_job,priority:2" json:"job_id"`
	CandidateID  string             `gorm:"column:candidate_id;not null;index:idx_match_scores_candidate,priority:2" json:"candidate_id"`
	Composite    float64            `gorm:"column:composite;not null" json:"composite"`
	// Rank is dense on Composite; Position is the 1-based slot after tie-breaks.
	Rank         int                `gorm:"column:rank;not null" json:"rank"`
	Position     int                `gorm:"column:position;not null" json:"position"`
	ComputedAt   time.Time          `gorm:"column:computed_at;not null" json:"computed_at"`
	SubscoresRaw datatypes.JSON     `gorm:"column:subscores;type:jsonb" json:"-"`
	Subscores    map[string]float64 `gorm:"-" json:"subscores"`
}

func (MatchScore) TableName() string {
	return "match_scores"
}
