package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"roundup-pipeline-go/internal/models"
	"roundup-pipeline-go/internal/store"

	"go.uber.org/zap"
)

// CreateAddress provisions a ledger address with its external signer public
// key. Existing addresses are left untouched.
func (s *Service) CreateAddress(ctx context.Context, address, publicKey string) error {
	if _, err := s.db.ExecContext(ctx, queryInsertAddress, address, publicKey); err != nil {
		return fmt.Errorf("failed to create address %s: %w", address, err)
	}
	return nil
}

func (s *Service) GetAddress(ctx context.Context, address string) (*models.Address, error) {
	var addr models.Address
	err := s.db.QueryRowContext(ctx, queryGetAddress, address).
		Scan(&addr.Address, &addr.PublicKey, &addr.LatestTransaction, &addr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrAddressNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address %s: %w", address, err)
	}
	return &addr, nil
}

func (s *Service) GetAddresses(ctx context.Context) ([]models.Address, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAddresses)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var addresses []models.Address
	for rows.Next() {
		var addr models.Address
		if err := rows.Scan(&addr.Address, &addr.PublicKey, &addr.LatestTransaction, &addr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, addr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating address rows: %w", err)
	}

	return addresses, nil
}

// SetLatestTransaction advances the address chain tip to the given hash.
// Called only after the latest entry's signatures have been verified.
func (s *Service) SetLatestTransaction(ctx context.Context, address, hashValue string) error {
	result, err := s.db.ExecContext(ctx, querySetLatestTransaction, hashValue, address)
	if err != nil {
		return fmt.Errorf("failed to set latest transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrAddressNotFound, address)
	}

	zap.L().Info("Address tip advanced",
		zap.String("address", address),
		zap.String("latest_transaction", hashValue))

	return nil
}
