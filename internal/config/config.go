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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"roundup-pipeline-go/internal/models"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	plaidTimeout, err := getEnvDuration("PLAID_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	signerTimeout, err := getEnvDuration("SIGNER_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	queueWaitTime, err := getEnvDuration("QUEUE_WAIT_TIME", 10*time.Second)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "roundups.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Plaid: models.PlaidConfig{
			Environment: getEnvString("PLAID_ENV", "tartan"),
			ClientId:    os.Getenv("PLAID_CLIENTID"),
			Secret:      os.Getenv("PLAID_SECRET"),
			Timeout:     plaidTimeout,
		},
		Queue: models.QueueConfig{
			ToSignerUrl:    os.Getenv("AWS_SQS_URL_TO_SIGNER"),
			FromSignerUrl:  os.Getenv("AWS_SQS_URL_FROM_SIGNER"),
			WaitTime:       queueWaitTime,
			EmptyPollLimit: getEnvInt("QUEUE_EMPTY_POLL_LIMIT", 3),
		},
		Signer: models.SignerConfig{
			Url:       os.Getenv("SIGNER_URL"),
			PublicKey: os.Getenv("SIGNER_PUBLIC_KEY"),
			Timeout:   signerTimeout,
		},
		Crypto: models.CryptoConfig{
			ServerPrivateKey: os.Getenv("SERVER_PRIVATE_KEY"),
			ServerKid:        getEnvString("SERVER_KID", "server"),
		},
		Roundup: models.RoundupConfig{
			Concurrency: getEnvInt("ROUNDUP_CONCURRENCY", 10),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
