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

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.RoundupStore.
var _ store.RoundupStore = (*Service)(nil)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Enrolled users; latest_roundup_date is the last day a chain was enqueued
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		active BOOLEAN NOT NULL DEFAULT 1,
		latest_roundup_date TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);

	-- Bank families; type keys into a user's aggregator tokens
	CREATE TABLE IF NOT EXISTS banks (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL
	);

	-- Per-user aggregator access tokens and account ids, keyed by bank family
	CREATE TABLE IF NOT EXISTS user_tokens (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		bank_type TEXT NOT NULL,
		access_token TEXT NOT NULL,
		account_id TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, bank_type)
	);

	-- A pledge directs round-ups from one bank to one non-profit
	CREATE TABLE IF NOT EXISTS pledges (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		bank_id TEXT NOT NULL REFERENCES banks(id),
		npo_id TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		monthly_limit TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pledges_user ON pledges(user_id, active);

	-- Monthly ledger address per pledge
	CREATE TABLE IF NOT EXISTS pledge_addresses (
		pledge_id TEXT NOT NULL REFERENCES pledges(id) ON DELETE CASCADE,
		month TEXT NOT NULL,
		address TEXT NOT NULL,
		PRIMARY KEY (pledge_id, month)
	);

	-- Ledger addresses; latest_transaction is the committed chain tip
	CREATE TABLE IF NOT EXISTS addresses (
		address TEXT PRIMARY KEY,
		public_key TEXT NOT NULL,
		latest_transaction TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Append-only chain entries, keyed by payload hash
	CREATE TABLE IF NOT EXISTS chain_transactions (
		hash TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		entry_count INTEGER NOT NULL,
		payload TEXT NOT NULL,
		signatures TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chain_transactions_address ON chain_transactions(address, entry_count);

	-- Append-only audit copy of eligible aggregator transactions
	CREATE TABLE IF NOT EXISTS plaid_transactions (
		transaction_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		roundup TEXT NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		summed BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Last completion time per named process
	CREATE TABLE IF NOT EXISTS runs (
		process TEXT PRIMARY KEY,
		last TIMESTAMP NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}
