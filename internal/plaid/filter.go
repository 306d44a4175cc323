package plaid

import (
	"time"

	"roundup-pipeline-go/internal/models"
)

// Filter keeps the raw transactions eligible for round-ups: settled debits
// with a valid date and a non-empty id. Everything else is silently dropped.
// The result preserves input order.
func Filter(transactions []models.RawTransaction) []models.RawTransaction {
	eligible := make([]models.RawTransaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Pending {
			continue
		}
		if !tx.Amount.IsPositive() {
			continue
		}
		if tx.Id == "" {
			continue
		}
		if !validDate(tx.Date) {
			continue
		}
		eligible = append(eligible, tx)
	}
	return eligible
}

// FilterAccount scopes transactions to one aggregator account. An empty
// account id keeps everything.
func FilterAccount(transactions []models.RawTransaction, accountId string) []models.RawTransaction {
	if accountId == "" {
		return transactions
	}
	scoped := make([]models.RawTransaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Account == accountId {
			scoped = append(scoped, tx)
		}
	}
	return scoped
}

func validDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}
