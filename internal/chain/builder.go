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

package chain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BatchItem is one eligible raw transaction prepared for chain assembly.
type BatchItem struct {
	Amount    decimal.Decimal
	Roundup   decimal.Decimal
	Date      string // YYYY-MM-DD, may be empty
	Reference string // raw transaction id
}

// Build links an ordered batch of eligible transactions onto a verified
// previous chain tip, producing one hashed entry per input. Each entry's
// balance is the prior balance minus the item's round-up; currency and limit
// carry forward from the previous payload. An empty batch returns no entries
// and no error, signalling the caller to skip enqueueing.
func Build(address string, previous Entry, items []BatchItem) ([]Entry, error) {
	if previous.Payload.Address != address {
		return nil, fmt.Errorf("%w: previous entry belongs to %q, building for %q",
			ErrAddressMismatch, previous.Payload.Address, address)
	}
	if previous.Payload.Currency == "" || previous.Payload.Count < 0 {
		return nil, fmt.Errorf("%w: missing count, balance, currency or limit", ErrInvalidPreviousTransaction)
	}

	digest, err := HashPayload(previous.Payload)
	if err != nil {
		return nil, fmt.Errorf("unable to hash previous payload: %w", err)
	}
	if digest != previous.Hash.Value {
		return nil, fmt.Errorf("%w: computed %s, entry carries %s",
			ErrPreviousTransactionHashMismatch, digest, previous.Hash.Value)
	}

	if len(items) == 0 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(items))
	prev := previous

	for i, item := range items {
		if item.Reference == "" {
			return nil, fmt.Errorf("%w: item %d has no reference", ErrInvalidTransactionInput, i)
		}
		if !item.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: item %d amount %s", ErrInvalidTransactionAmount, i, item.Amount.String())
		}
		if item.Roundup.IsNegative() {
			return nil, fmt.Errorf("%w: item %d roundup %s", ErrInvalidTransactionRoundup, i, item.Roundup.String())
		}

		timestamp := item.Date
		if timestamp == "" {
			timestamp = time.Now().UTC().Format(time.RFC3339)
		}

		prevHash := prev.Hash.Value
		payload := Payload{
			Count:     prev.Payload.Count + 1,
			Address:   address,
			Amount:    item.Amount,
			Roundup:   item.Roundup,
			Balance:   prev.Payload.Balance.Sub(item.Roundup),
			Currency:  prev.Payload.Currency,
			Limit:     prev.Payload.Limit,
			Previous:  &prevHash,
			Timestamp: timestamp,
			Reference: item.Reference,
		}

		entry, err := NewEntry(payload)
		if err != nil {
			return nil, fmt.Errorf("unable to hash entry %d: %w", i, err)
		}

		entries = append(entries, entry)
		prev = entry
	}

	return entries, nil
}
