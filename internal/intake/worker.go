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

package intake

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"roundup-pipeline-go/internal/chain"
	"roundup-pipeline-go/internal/models"
	"roundup-pipeline-go/internal/plaid"
	"roundup-pipeline-go/internal/store"

	"go.uber.org/zap"
)

// TransactionFetcher pulls one user's recent transactions from the
// aggregator.
type TransactionFetcher interface {
	GetTransactions(ctx context.Context, accessToken string, rng models.DateRange) ([]models.RawTransaction, error)
}

// EnvelopeSender delivers a signed envelope to the to-signer queue.
type EnvelopeSender interface {
	SendEnvelope(ctx context.Context, queueUrl string, env *chain.Envelope) error
}

// SignerTrigger pokes the external co-signing service.
type SignerTrigger interface {
	Trigger(ctx context.Context) error
}

// WorkerConfig contains configuration for Worker
type WorkerConfig struct {
	Store       store.RoundupStore
	Plaid       TransactionFetcher
	Queue       EnvelopeSender
	Signer      SignerTrigger
	SigningKey  ed25519.PrivateKey
	ServerKid   string
	ToSignerUrl string
}

// Worker processes one user's round-up intake: fetch, filter, build chain,
// sign, enqueue, trigger the signer.
type Worker struct {
	store       store.RoundupStore
	plaid       TransactionFetcher
	queue       EnvelopeSender
	signer      SignerTrigger
	signingKey  ed25519.PrivateKey
	serverKid   string
	toSignerUrl string
}

func NewWorker(cfg WorkerConfig) *Worker {
	return &Worker{
		store:       cfg.Store,
		plaid:       cfg.Plaid,
		queue:       cfg.Queue,
		signer:      cfg.Signer,
		signingKey:  cfg.SigningKey,
		serverKid:   cfg.ServerKid,
		toSignerUrl: cfg.ToSignerUrl,
	}
}

// Process runs the intake for one work item. The boolean reports whether an
// envelope was enqueued; the scheduler advances latestRoundupDate only then.
// There are no retries within a run; the next scheduled run retries.
func (w *Worker) Process(ctx context.Context, item models.WorkItem) (bool, error) {
	transactions, err := w.plaid.GetTransactions(ctx, item.AccessToken, item.Range)
	if err != nil {
		return false, fmt.Errorf("aggregator fetch for user %s failed: %w", item.UserId, err)
	}

	transactions = plaid.FilterAccount(transactions, item.AccountId)
	eligible := plaid.Filter(transactions)

	zap.L().Info("Fetched aggregator transactions",
		zap.String("user_id", item.UserId),
		zap.String("gte", item.Range.Gte),
		zap.String("lte", item.Range.Lte),
		zap.Int("fetched", len(transactions)),
		zap.Int("eligible", len(eligible)))

	items := make([]chain.BatchItem, 0, len(eligible))
	for _, tx := range eligible {
		roundup := chain.Roundup(tx.Amount)

		// Audit copy is best-effort; a failure here never aborts the chain.
		err := w.store.RecordPlaidTransaction(ctx, store.PlaidTransactionParams{
			TransactionId: tx.Id,
			UserId:        item.UserId,
			Amount:        tx.Amount,
			Roundup:       roundup,
			Date:          tx.Date,
			Name:          tx.Name,
		})
		if err != nil && !errors.Is(err, store.ErrDuplicateTransaction) {
			zap.L().Warn("Failed to record plaid transaction",
				zap.String("transaction_id", tx.Id),
				zap.String("user_id", item.UserId),
				zap.Error(err))
		}

		items = append(items, chain.BatchItem{
			Amount:    tx.Amount,
			Roundup:   roundup,
			Date:      tx.Date,
			Reference: tx.Id,
		})
	}

	if len(items) == 0 {
		zap.L().Info("No eligible transactions, skipping enqueue",
			zap.String("user_id", item.UserId),
			zap.String("address", item.Address))
		return false, nil
	}

	addr, err := w.store.GetAddress(ctx, item.Address)
	if err != nil {
		return false, err
	}
	if addr.LatestTransaction == "" {
		return false, fmt.Errorf("%w: address %s has no tip", store.ErrNoPreviousChain, item.Address)
	}

	previous, err := w.store.GetChainEntry(ctx, addr.LatestTransaction)
	if err != nil {
		return false, err
	}

	entries, err := chain.Build(item.Address, *previous, items)
	if err != nil {
		return false, fmt.Errorf("chain build for user %s failed: %w", item.UserId, err)
	}

	// Limit enforcement is external policy; the pipeline only observes.
	final := entries[len(entries)-1]
	if final.Payload.Balance.LessThan(final.Payload.Limit) {
		zap.L().Warn("Chain balance crossed pledge limit",
			zap.String("user_id", item.UserId),
			zap.String("address", item.Address),
			zap.String("balance", final.Payload.Balance.String()),
			zap.String("limit", final.Payload.Limit.String()))
	}

	envelope := chain.NewEnvelope(item.Address, *previous, entries)
	if err := chain.SignEnvelope(envelope, w.signingKey, w.serverKid); err != nil {
		return false, fmt.Errorf("envelope signing for user %s failed: %w", item.UserId, err)
	}

	if err := w.queue.SendEnvelope(ctx, w.toSignerUrl, envelope); err != nil {
		return false, fmt.Errorf("envelope enqueue for user %s failed: %w", item.UserId, err)
	}

	zap.L().Info("Roundup chain enqueued for co-signing",
		zap.String("user_id", item.UserId),
		zap.String("address", item.Address),
		zap.Int("entries", len(entries)),
		zap.Int64("final_count", final.Payload.Count),
		zap.String("final_balance", final.Payload.Balance.String()))

	if err := w.signer.Trigger(ctx); err != nil {
		// The envelope is already on the queue; report but keep the enqueue.
		return true, fmt.Errorf("signer trigger for user %s failed: %w", item.UserId, err)
	}

	return true, nil
}
