package models

import (
	"time"
)

// LedgerKind is the type of a wallet ledger entry
type LedgerKind string

const (
	LedgerKindTopUp       LedgerKind = "topup"
	LedgerKindVIPPurchase LedgerKind = "vip_purchase"
)

// LedgerEntry is one append-only wallet event
type LedgerEntry struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"user_id" db:"user_id"`
	Kind         LedgerKind `json:"kind" db:"kind"`
	MoneyAmount  int64      `json:"money_amount" db:"money_amount"`
	Change       int64      `json:"change" db:"change"`
	Bonus        int64      `json:"bonus" db:"bonus"`
	BalanceAfter int64      `json:"balance_after" db:"balance_after"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Account is the locked wallet state of a user inside a ledger transaction
type Account struct {
	UserID  string
	Balance int64
	IsVIP   bool
	// BonusGranted is true if any earlier entry carried a bonus
	BonusGranted bool
}

// Wallet is the balance view returned to the owner
type Wallet struct {
	UserID   string `json:"user_id"`
	Balance  int64  `json:"balance"`
	IsVIP    bool   `json:"is_vip"`
	VIPPrice int64  `json:"vip_price"`
}

// TopUpRequest is the recharge form
type TopUpRequest struct {
	Amount int64 `json:"amount" form:"amount"`
}

// MaxTopUpAmount caps a single recharge in money units
const MaxTopUpAmount = 100000

// ValidExportFormats defines allowed ledger export formats
var ValidExportFormats = map[string]bool{
	"json":   true,
	"ndjson": true,
	"csv":    true,
}
