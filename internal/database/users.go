/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"

	"roundup-pipeline-go/internal/models"
	"roundup-pipeline-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetRoundupUsers selects the users eligible for a round-up run: active,
// with an active pledge, an aggregator token for the pledge's bank family,
// and at least one pledge address. Only the first active pledge per user is
// returned.
func (s *Service) GetRoundupUsers(ctx context.Context) ([]models.RoundupUser, error) {
	rows, err := s.db.QueryContext(ctx, queryGetRoundupUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to query roundup users: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var users []models.RoundupUser
	for rows.Next() {
		var user models.RoundupUser
		var limitStr string
		err := rows.Scan(&user.Id, &user.LatestRoundupDate,
			&user.PledgeId, &user.NpoId, &user.BankId, &user.BankType, &limitStr,
			&user.AccessToken, &user.AccountId)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roundup user: %w", err)
		}

		user.MonthlyLimit, err = decimal.NewFromString(limitStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse monthly limit %q: %w", limitStr, err)
		}

		user.Addresses, err = s.getPledgeAddresses(ctx, user.PledgeId)
		if err != nil {
			return nil, err
		}

		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roundup user rows: %w", err)
	}

	return users, nil
}

func (s *Service) getPledgeAddresses(ctx context.Context, pledgeId string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, queryGetPledgeAddresses, pledgeId)
	if err != nil {
		return nil, fmt.Errorf("failed to query pledge addresses: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	addresses := make(map[string]string)
	for rows.Next() {
		var month, address string
		if err := rows.Scan(&month, &address); err != nil {
			return nil, fmt.Errorf("failed to scan pledge address: %w", err)
		}
		addresses[month] = address
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pledge address rows: %w", err)
	}

	return addresses, nil
}

// SetLatestRoundupDate advances the user's last-run marker after a
// successful enqueue.
func (s *Service) SetLatestRoundupDate(ctx context.Context, userId, date string) error {
	result, err := s.db.ExecContext(ctx, querySetLatestRoundupDate, date, userId)
	if err != nil {
		return fmt.Errorf("failed to set latest roundup date: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}

	return nil
}

// CreatePledgeParams contains the parameters for provisioning a pledge.
type CreatePledgeParams struct {
	Id           string // generated when empty
	UserId       string
	BankId       string
	NpoId        string
	Active       bool
	MonthlyLimit decimal.Decimal
	Position     int
}

// Provisioning helpers used by cmd/setup.

func (s *Service) CreateUser(ctx context.Context, userId string, active bool) error {
	if _, err := s.db.ExecContext(ctx, queryInsertUser, userId, active); err != nil {
		return fmt.Errorf("failed to create user %s: %w", userId, err)
	}
	return nil
}

func (s *Service) CreateBank(ctx context.Context, bankId, bankType string) error {
	if _, err := s.db.ExecContext(ctx, queryInsertBank, bankId, bankType); err != nil {
		return fmt.Errorf("failed to create bank %s: %w", bankId, err)
	}
	return nil
}

func (s *Service) SetUserToken(ctx context.Context, userId, bankType, accessToken, accountId string) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertUserToken, userId, bankType, accessToken, accountId); err != nil {
		return fmt.Errorf("failed to set token for user %s: %w", userId, err)
	}
	return nil
}

func (s *Service) CreatePledge(ctx context.Context, params CreatePledgeParams) (string, error) {
	pledgeId := params.Id
	if pledgeId == "" {
		pledgeId = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, queryInsertPledge,
		pledgeId, params.UserId, params.BankId, params.NpoId,
		params.Active, params.MonthlyLimit.String(), params.Position)
	if err != nil {
		return "", fmt.Errorf("failed to create pledge for user %s: %w", params.UserId, err)
	}

	return pledgeId, nil
}

func (s *Service) SetPledgeAddress(ctx context.Context, pledgeId, month, address string) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertPledgeAddress, pledgeId, month, address); err != nil {
		return fmt.Errorf("failed to set pledge address: %w", err)
	}
	return nil
}
