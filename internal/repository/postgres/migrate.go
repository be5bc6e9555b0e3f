package postgres

import (
	"talentMarket/domain"

	"gorm.io/gorm"
)

// Models lists every table the service owns.
func Models() []interface{} {
	return []interface{}{
		&domain.Candidate{},
		&domain.Job{},
		&domain.SuppressionEntry{},
		&domain.MatchScore{},
		&domain.Wallet{},
		&domain.LedgerEntry{},
		&domain.UnlockGrant{},
		&domain.PipelineItem{},
		&domain.PipelineEvent{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return wrapError(err, "migrate schema")
	}
	return nil
}
