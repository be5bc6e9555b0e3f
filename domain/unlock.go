package domain

import "time"

// UnlockGrant gives a company permanent access to a candidate's full
// profile for one job. Unique per (job, candidate, company).
type UnlockGrant struct {
	JobID         string    `gorm:"column:job_id;primaryKey" json:"job_id"`
	CandidateID   string    `gorm:"column:candidate_id;primaryKey" json:"candidate_id"`
	CompanyID     string    `gorm:"column:company_id;primaryKey;index:idx_unlock_company_granted,priority:1" json:"company_id"`
	ReferenceID   string    `gorm:"column:reference_id;not null;uniqueIndex" json:"reference_id"`
	LedgerEntryID string    `gorm:"column:ledger_entry_id;not null" json:"ledger_entry_id"`
	Cost          int64     `gorm:"column:cost;not null" json:"cost"`
	GrantedAt     time.Time `gorm:"column:granted_at;not null;index:idx_unlock_company_granted,priority:2" json:"granted_at"`
}

func (UnlockGrant) TableName() string {
	return "unlock_grants"
}

type UnlockResult struct {
	Grant          UnlockGrant   `json:"grant"`
	Stage          PipelineStage `json:"stage"`
	Balance        int64         `json:"balance"`
	AlreadyGranted bool          `json:"already_granted"`
}
