package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"roundup-pipeline-go/internal/store"

	"go.uber.org/zap"
)

// RecordPlaidTransaction writes the append-only audit copy of one eligible
// aggregator transaction. At most one record exists per transaction id;
// replays fail with ErrDuplicateTransaction, which callers treat as success.
func (s *Service) RecordPlaidTransaction(ctx context.Context, params store.PlaidTransactionParams) error {
	var existingId string
	err := s.db.QueryRowContext(ctx, queryCheckPlaidTransaction, params.TransactionId).Scan(&existingId)
	if err == nil {
		return fmt.Errorf("%w: plaid transaction %s already recorded", store.ErrDuplicateTransaction, params.TransactionId)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check for duplicate plaid transaction: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryInsertPlaidTransaction,
		params.TransactionId, params.UserId,
		params.Amount.String(), params.Roundup.String(),
		params.Date, params.Name)
	if err != nil {
		return fmt.Errorf("failed to record plaid transaction %s: %w", params.TransactionId, err)
	}

	zap.L().Debug("Plaid transaction recorded",
		zap.String("transaction_id", params.TransactionId),
		zap.String("user_id", params.UserId),
		zap.String("amount", params.Amount.String()),
		zap.String("roundup", params.Roundup.String()))

	return nil
}
