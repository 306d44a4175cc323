package models

import "github.com/shopspring/decimal"

// RawTransaction is one card transaction as returned by the aggregator's
// legacy /connect/get endpoint. Positive amounts are debits.
type RawTransaction struct {
	Id      string          `json:"_id"`
	Account string          `json:"_account"`
	Amount  decimal.Decimal `json:"amount"`
	Date    string          `json:"date"` // YYYY-MM-DD
	Name    string          `json:"name"`
	Pending bool            `json:"pending"`
}

// DateRange bounds an aggregator query, both ends YYYY-MM-DD. Lte may be
// empty, in which case the aggregator defaults to today.
type DateRange struct {
	Gte string
	Lte string
}
