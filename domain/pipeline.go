package domain

import (
	"strings"
	"time"
)

type PipelineStage string

const (
	StageNew       PipelineStage = "New"
	StageReviewed  PipelineStage = "Reviewed"
	StageContacted PipelineStage = "Contacted"
	StageInterview PipelineStage = "Interview"
	StageOffer     PipelineStage = "Offer"
	StageHired     PipelineStage = "Hired"
	StageRejected  PipelineStage = "Rejected"
)

// PipelineChain is the forward order of the hiring funnel. Rejected sits outside it.
var PipelineChain = []PipelineStage{
	StageNew,
	StageReviewed,
	StageContacted,
	StageInterview,
	StageOffer,
	StageHired,
}

// ParseStage accepts stage names case-insensitively.
func ParseStage(s string) (PipelineStage, bool) {
	for _, st := range append(PipelineChain, StageRejected) {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

// Position is the index of the stage in PipelineChain, or -1 for Rejected / unknown.
func (s PipelineStage) Position() int {
	for i, st := range PipelineChain {
		if st == s {
			return i
		}
	}
	return -1
}

func (s PipelineStage) Terminal() bool {
	return s == StageHired || s == StageRejected
}

// PipelineItem is the current stage of a candidate within a job's funnel.
type PipelineItem struct {
	JobID       string        `gorm:"column:job_id;primaryKey" json:"job_id"`
	CandidateID string        `gorm:"column:candidate_id;primaryKey;index" json:"candidate_id"`
	Stage       PipelineStage `gorm:"column:stage;not null" json:"stage"`
	MovedAt     time.Time     `gorm:"column:moved_at;not null" json:"moved_at"`
	MovedBy     string        `gorm:"column:moved_by" json:"moved_by"`
	CreatedAt   time.Time     `gorm:"column:created_at;not null" json:"created_at"`
}

func (PipelineItem) TableName() string {
	return "pipeline_items"
}

// PipelineEvent is the append-only transition log.
type PipelineEvent struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	JobID       string        `gorm:"column:job_id;not null;index:idx_pipeline_events_pair,priority:1" json:"job_id"`
	CandidateID string        `gorm:"column:candidate_id;not null;index:idx_pipeline_events_pair,priority:2" json:"candidate_id"`
	FromStage   PipelineStage `gorm:"column:from_stage" json:"from_stage"`
	ToStage     PipelineStage `gorm:"column:to_stage;not null" json:"to_stage"`
	Actor       string        `gorm:"column:actor" json:"actor"`
	CreatedAt   time.Time     `gorm:"column:created_at;not null" json:"created_at"`
}

func (PipelineEvent) TableName() string {
	return "pipeline_events"
}
