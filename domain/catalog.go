package domain

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Candidate is a mirror of the externally owned candidate profile,
// restricted to the attributes matching needs.
type Candidate struct {
	ID                  string         `gorm:"column:id;primaryKey" json:"id"`
	Skills              pq.StringArray `gorm:"column:skills;type:text[]" json:"skills"`
	City                string         `gorm:"column:city" json:"city"`
	Country             string         `gorm:"column:country;index" json:"country"`
	Latitude            *float64       `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude           *float64       `gorm:"column:longitude" json:"longitude,omitempty"`
	Languages           pq.StringArray `gorm:"column:languages;type:text[]" json:"languages"`
	DesiredBenefits     pq.StringArray `gorm:"column:desired_benefits;type:text[]" json:"desired_benefits"`
	ProfileCompleteness float64        `gorm:"column:profile_completeness;default:0" json:"profile_completeness"`
	LastActiveAt        time.Time      `gorm:"column:last_active_at" json:"last_active_at"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// Job is a mirror of the externally owned job posting.
type Job struct {
	ID                string         `gorm:"column:id;primaryKey" json:"id"`
	CompanyID         string         `gorm:"column:company_id;not null;index" json:"company_id"`
	Title             string         `gorm:"column:title" json:"title"`
	RequiredSkills    pq.StringArray `gorm:"column:required_skills;type:text[]" json:"required_skills"`
	City              string         `gorm:"column:city" json:"city"`
	Country           string         `gorm:"column:country;index" json:"country"`
	Latitude          *float64       `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude         *float64       `gorm:"column:longitude" json:"longitude,omitempty"`
	Remote            bool           `gorm:"column:remote;default:false" json:"remote"`
	RequiredLanguages pq.StringArray `gorm:"column:required_languages;type:text[]" json:"required_languages"`
	Benefits          pq.StringArray `gorm:"column:benefits;type:text[]" json:"benefits"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

// AdmitsCandidate is the coarse pool filter applied before scoring:
// remote jobs take anyone, otherwise the country must match when both are known.
func (j Job) AdmitsCandidate(c Candidate) bool {
	if j.Remote || j.Country == "" || c.Country == "" {
		return true
	}
	return strings.EqualFold(j.Country, c.Country)
}
