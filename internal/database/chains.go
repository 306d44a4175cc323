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
	"encoding/json"
	"errors"
	"fmt"

	"roundup-pipeline-go/internal/chain"
	"roundup-pipeline-go/internal/store"
)

// UpsertChainEntry stores one chain entry keyed by its payload hash. A
// collision on hash refreshes the signatures only; payloads are immutable
// by construction, so re-delivery of the same envelope is idempotent.
func (s *Service) UpsertChainEntry(ctx context.Context, address string, entry chain.Entry) error {
	payload, err := chain.CanonicalMarshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to serialize entry payload: %w", err)
	}

	signatures, err := chain.CanonicalMarshal(entry.Signatures)
	if err != nil {
		return fmt.Errorf("failed to serialize entry signatures: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryUpsertChainEntry,
		entry.Hash.Value, address, entry.Payload.Count, string(payload), string(signatures))
	if err != nil {
		return fmt.Errorf("failed to upsert chain entry %s: %w", entry.Hash.Value, err)
	}

	return nil
}

// GetChainEntry loads one chain entry by hash value and reconstructs it from
// the stored canonical payload.
func (s *Service) GetChainEntry(ctx context.Context, hashValue string) (*chain.Entry, error) {
	var hash, payloadStr, signaturesStr string
	err := s.db.QueryRowContext(ctx, queryGetChainEntry, hashValue).
		Scan(&hash, &payloadStr, &signaturesStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no chain entry %s", store.ErrNoPreviousChain, hashValue)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chain entry %s: %w", hashValue, err)
	}

	entry := chain.Entry{
		Hash:       chain.Hash{Type: chain.HashTypeSha256, Value: hash},
		Signatures: []chain.Signature{},
	}
	if err := json.Unmarshal([]byte(payloadStr), &entry.Payload); err != nil {
		return nil, fmt.Errorf("failed to parse stored payload for %s: %w", hashValue, err)
	}
	if err := json.Unmarshal([]byte(signaturesStr), &entry.Signatures); err != nil {
		return nil, fmt.Errorf("failed to parse stored signatures for %s: %w", hashValue, err)
	}

	return &entry, nil
}
