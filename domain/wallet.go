package domain

import "time"

type EntryType string

const (
	EntryDebit  EntryType = "debit"
	EntryCredit EntryType = "credit"
)

// Ledger reasons.
const (
	ReasonUnlock = "unlock"
	ReasonRefund = "refund"
	ReasonTopUp  = "topup"
)

// Wallet is owned by the ledger. Balance is a cache of the sum of its
// entries and only changes together with an entry insert.
type Wallet struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	CompanyID string    `gorm:"column:company_id;not null;uniqueIndex" json:"company_id"`
	Balance   int64     `gorm:"column:balance;not null;default:0" json:"balance"`
	Version   int64     `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// LedgerEntry is append-only. (wallet, type, reference) is unique so a
// replayed operation finds its original entry.
type LedgerEntry struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	WalletID    string    `gorm:"column:wallet_id;not null;uniqueIndex:ux_ledger_wallet_type_ref,priority:1" json:"wallet_id"`
	CompanyID   string    `gorm:"column:company_id;not null;index:idx_ledger_company_created,priority:1" json:"company_id"`
	EntryType   EntryType `gorm:"column:entry_type;not null;uniqueIndex:ux_ledger_wallet_type_ref,priority:2" json:"entry_type"`
	Delta       int64     `gorm:"column:delta;not null" json:"delta"`
	Reason      string    `gorm:"column:reason;not null" json:"reason"`
	ReferenceID string    `gorm:"column:reference_id;not null;uniqueIndex:ux_ledger_wallet_type_ref,priority:3" json:"reference_id"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;index:idx_ledger_company_created,priority:2" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

type LedgerResult struct {
	Entry          LedgerEntry `json:"entry"`
	Balance        int64       `json:"balance"`
	AlreadyApplied bool        `json:"already_applied"`
}

// Reconciliation is the outcome of comparing a wallet's cached balance
// with the sum of its entries.
type Reconciliation struct {
	WalletID   string `json:"wallet_id"`
	CompanyID  string `json:"company_id"`
	Balance    int64  `json:"balance"`
	LedgerSum  int64  `json:"ledger_sum"`
	EntryCount int64  `json:"entry_count"`
	Consistent bool   `json:"consistent"`
}
