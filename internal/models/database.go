package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundupUser is one eligible user as selected by the scheduler: active,
// with an active pledge, a pledge address map, and an aggregator token for
// the pledge's bank family. Only the first active pledge is carried.
type RoundupUser struct {
	Id                string
	LatestRoundupDate string // YYYY-MM-DD, empty when the user never ran
	PledgeId          string
	NpoId             string
	BankId            string
	BankType          string
	MonthlyLimit      decimal.Decimal
	AccessToken       string
	AccountId         string
	Addresses         map[string]string // YYYY-MM -> ledger address
}

// Address represents a per-pledge, per-month ledger identity
type Address struct {
	Address           string    `db:"address"`
	PublicKey         string    `db:"public_key"` // hex ed25519 key of the external signer
	LatestTransaction string    `db:"latest_transaction"`
	CreatedAt         time.Time `db:"created_at"`
}

// PlaidTransaction is the audit copy of one eligible raw transaction,
// persisted before chain assembly. Append-only, keyed by TransactionId.
type PlaidTransaction struct {
	TransactionId string          `db:"transaction_id"`
	UserId        string          `db:"user_id"`
	Amount        decimal.Decimal `db:"amount"`
	Roundup       decimal.Decimal `db:"roundup"`
	Date          string          `db:"date"`
	Name          string          `db:"name"`
	Summed        bool            `db:"summed"`
}

// Run records the last completion time of a named process
type Run struct {
	Process string    `db:"process"`
	Last    time.Time `db:"last"`
}
