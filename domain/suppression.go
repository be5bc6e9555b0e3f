package domain

import "time"

const (
	ReasonRejected = "rejected"
)

// SuppressionEntry excludes a (job, candidate) pair from matching and unlocking
// until ExpiresAt. One row per pair; a new suppression replaces the expiry.
type SuppressionEntry struct {
	JobID       string    `gorm:"column:job_id;primaryKey" json:"job_id"`
	CandidateID string    `gorm:"column:candidate_id;primaryKey;index" json:"candidate_id"`
	ReasonCode  string    `gorm:"column:reason_code;not null" json:"reason_code"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
}

func (SuppressionEntry) TableName() string {
	return "suppression_entries"
}

// ActiveAt reports whether the entry still suppresses the pair at now.
func (s SuppressionEntry) ActiveAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
