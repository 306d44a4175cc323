package store

import (
	"context"
	"errors"
	"time"

	"roundup-pipeline-go/internal/chain"
	"roundup-pipeline-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrAddressNotFound      = errors.New("address not found")
	ErrNoPreviousChain      = errors.New("no previous chain")
	ErrUserNotFound         = errors.New("user not found")
)

// PlaidTransactionParams captures one eligible aggregator transaction for
// the append-only audit collection.
type PlaidTransactionParams struct {
	TransactionId string
	UserId        string
	Amount        decimal.Decimal
	Roundup       decimal.Decimal
	Date          string
	Name          string
}

// RoundupStore defines the contract the pipeline needs from a backend.
type RoundupStore interface {
	// --- Users ---
	GetRoundupUsers(ctx context.Context) ([]models.RoundupUser, error)
	SetLatestRoundupDate(ctx context.Context, userId, date string) error

	// --- Addresses ---
	GetAddress(ctx context.Context, address string) (*models.Address, error)
	GetAddresses(ctx context.Context) ([]models.Address, error)
	SetLatestTransaction(ctx context.Context, address, hashValue string) error

	// --- Chain entries ---
	GetChainEntry(ctx context.Context, hashValue string) (*chain.Entry, error)
	UpsertChainEntry(ctx context.Context, address string, entry chain.Entry) error

	// --- Audit records ---
	RecordPlaidTransaction(ctx context.Context, params PlaidTransactionParams) error

	// --- Runs ---
	RecordRun(ctx context.Context, process string, last time.Time) error
	GetRun(ctx context.Context, process string) (*models.Run, error)

	// --- Lifecycle ---
	Close()
}
