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

package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"roundup-pipeline-go/internal/chain"
	"roundup-pipeline-go/internal/models"
	"roundup-pipeline-go/internal/store"

	"go.uber.org/zap"
)

const processName = "roundup"

// MessageQueue is the slice of the queue service the consumer uses.
type MessageQueue interface {
	Receive(ctx context.Context, queueUrl string) ([]models.QueueMessage, error)
	Delete(ctx context.Context, queueUrl, receiptHandle string) error
}

// Config contains configuration for Consumer
type Config struct {
	Queue           MessageQueue
	Store           store.RoundupStore
	FromSignerUrl   string
	ServerPublicKey string // hex ed25519 key matching the intake signing key
	ServerKid       string
	SignerPublicKey string // hex ed25519 fallback for addresses without a key
	EmptyPollLimit  int
}

// Consumer drains the from-signer queue, verifies co-signed envelopes, and
// commits them to the store. Messages that fail any check are left on the
// queue for redelivery and eventual dead-lettering.
type Consumer struct {
	queue           MessageQueue
	store           store.RoundupStore
	queueUrl        string
	serverPublicKey string
	serverKid       string
	signerPublicKey string
	emptyPollLimit  int
}

func NewConsumer(cfg Config) *Consumer {
	emptyPollLimit := cfg.EmptyPollLimit
	if emptyPollLimit <= 0 {
		emptyPollLimit = 3
	}
	return &Consumer{
		queue:           cfg.Queue,
		store:           cfg.Store,
		queueUrl:        cfg.FromSignerUrl,
		serverPublicKey: cfg.ServerPublicKey,
		serverKid:       cfg.ServerKid,
		signerPublicKey: cfg.SignerPublicKey,
		emptyPollLimit:  emptyPollLimit,
	}
}

// Run polls the from-signer queue until it stays empty for the configured
// number of consecutive polls, then records the run and returns.
func (c *Consumer) Run(ctx context.Context) error {
	emptyPolls := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		messages, err := c.queue.Receive(ctx, c.queueUrl)
		if err != nil {
			return fmt.Errorf("unable to poll from-signer queue: %w", err)
		}

		if len(messages) == 0 {
			emptyPolls++
			if emptyPolls >= c.emptyPollLimit {
				if err := c.store.RecordRun(ctx, processName, time.Now().UTC()); err != nil {
					return err
				}
				zap.L().Info("From-signer queue drained, settlement run complete",
					zap.Int("empty_polls", emptyPolls))
				return nil
			}
			continue
		}
		emptyPolls = 0

		for _, msg := range messages {
			if err := c.commit(ctx, msg.Body); err != nil {
				// Leave the message for redelivery; the broker dead-letters
				// it after repeated failures.
				zap.L().Error("Failed to commit envelope", zap.Error(err))
				continue
			}
			if err := c.queue.Delete(ctx, c.queueUrl, msg.ReceiptHandle); err != nil {
				zap.L().Error("Failed to delete committed message", zap.Error(err))
			}
		}
	}
}

// commit verifies one co-signed envelope and persists its entries. Every
// check precedes the first write, so a rejected envelope leaves the store
// untouched. Re-delivery of a committed envelope is a no-op upsert.
func (c *Consumer) commit(ctx context.Context, body string) error {
	var env chain.Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return fmt.Errorf("unable to parse envelope: %w", err)
	}
	if len(env.Payload.Transactions) == 0 {
		return fmt.Errorf("%w: envelope carries no transactions", chain.ErrNoTransactionChain)
	}

	address := env.Payload.Address
	addr, err := c.store.GetAddress(ctx, address)
	if err != nil {
		return err
	}

	if !env.VerifySignatureByKid(c.serverPublicKey, c.serverKid) {
		return fmt.Errorf("%w: envelope server signature rejected for address %s",
			chain.ErrInvalidSignature, address)
	}

	expectedCount := env.Payload.Previous.Payload.Count + int64(len(env.Payload.Transactions))
	var latest *chain.Entry
	for i := range env.Payload.Transactions {
		if env.Payload.Transactions[i].Payload.Count == expectedCount {
			latest = &env.Payload.Transactions[i]
			break
		}
	}
	if latest == nil {
		return fmt.Errorf("envelope for address %s has no entry with count %d", address, expectedCount)
	}

	addressKey := addr.PublicKey
	if addressKey == "" {
		addressKey = c.signerPublicKey
	}
	if !latest.VerifyLastSignature(addressKey) {
		return fmt.Errorf("%w: latest entry signature rejected for address %s",
			chain.ErrInvalidSignature, address)
	}

	// Redelivery of an already-committed envelope succeeds so the message is
	// finally deleted.
	if addr.LatestTransaction == latest.Hash.Value {
		zap.L().Info("Envelope already committed, skipping",
			zap.String("address", address),
			zap.String("tip", latest.Hash.Value))
		return nil
	}

	// The envelope must extend the current tip; anything else is a stale or
	// out-of-order batch.
	previousHash := env.Payload.Previous.Hash.Value
	if addr.LatestTransaction != previousHash {
		return fmt.Errorf("envelope for address %s extends %s but chain tip is %s",
			address, previousHash, addr.LatestTransaction)
	}

	for _, entry := range env.Payload.Transactions {
		if err := c.store.UpsertChainEntry(ctx, address, entry); err != nil {
			return fmt.Errorf("unable to persist chain entry %s: %w", entry.Hash.Value, err)
		}
	}

	if err := c.store.SetLatestTransaction(ctx, address, latest.Hash.Value); err != nil {
		return fmt.Errorf("unable to advance chain tip for address %s: %w", address, err)
	}

	zap.L().Info("Committed co-signed envelope",
		zap.String("address", address),
		zap.Int("entries", len(env.Payload.Transactions)),
		zap.Int64("count", latest.Payload.Count),
		zap.String("tip", latest.Hash.Value),
		zap.String("balance", latest.Payload.Balance.String()))

	return nil
}
