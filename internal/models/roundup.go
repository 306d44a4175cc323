package models

import "github.com/shopspring/decimal"

// WorkItem is one user's unit of work for the intake worker: everything
// needed to fetch, filter, build, sign and enqueue a round-up chain.
type WorkItem struct {
	UserId       string
	Address      string
	AccessToken  string
	AccountId    string
	BankType     string
	MonthlyLimit decimal.Decimal
	Range        DateRange
}

// RunOptions lets a caller narrow the scheduler's date window. Both bounds
// are optional and are clamped strictly before today.
type RunOptions struct {
	Gte string
	Lte string
}

// QueueMessage is one received queue message with its receipt handle for
// explicit deletion after a successful commit.
type QueueMessage struct {
	Body          string
	ReceiptHandle string
}
