package intake

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"
	"testing"
	"time"

	"roundup-pipeline-go/internal/chain"
	"roundup-pipeline-go/internal/models"
	"roundup-pipeline-go/internal/store"

	"github.com/shopspring/decimal"
)

type fakeStore struct {
	mu sync.Mutex

	users    []models.RoundupUser
	usersErr error

	addresses map[string]models.Address
	entries   map[string]chain.Entry

	plaidRecorded []store.PlaidTransactionParams
	latestDates   map[string]string
	latestTips    map[string]string
	runs          map[string]time.Time
	upserted      []chain.Entry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		addresses:   make(map[string]models.Address),
		entries:     make(map[string]chain.Entry),
		latestDates: make(map[string]string),
		latestTips:  make(map[string]string),
		runs:        make(map[string]time.Time),
	}
}

func (f *fakeStore) GetRoundupUsers(_ context.Context) ([]models.RoundupUser, error) {
	return f.users, f.usersErr
}

func (f *fakeStore) SetLatestRoundupDate(_ context.Context, userId, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestDates[userId] = date
	return nil
}

func (f *fakeStore) GetAddress(_ context.Context, address string) (*models.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	addr, ok := f.addresses[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrAddressNotFound, address)
	}
	return &addr, nil
}

func (f *fakeStore) GetAddresses(_ context.Context) ([]models.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	addresses := make([]models.Address, 0, len(f.addresses))
	for _, addr := range f.addresses {
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

func (f *fakeStore) SetLatestTransaction(_ context.Context, address, hashValue string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestTips[address] = hashValue
	return nil
}

func (f *fakeStore) GetChainEntry(_ context.Context, hashValue string) (*chain.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[hashValue]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNoPreviousChain, hashValue)
	}
	return &entry, nil
}

func (f *fakeStore) UpsertChainEntry(_ context.Context, _ string, entry chain.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.Hash.Value] = entry
	f.upserted = append(f.upserted, entry)
	return nil
}

func (f *fakeStore) RecordPlaidTransaction(_ context.Context, params store.PlaidTransactionParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, recorded := range f.plaidRecorded {
		if recorded.TransactionId == params.TransactionId {
			return fmt.Errorf("%w: %s", store.ErrDuplicateTransaction, params.TransactionId)
		}
	}
	f.plaidRecorded = append(f.plaidRecorded, params)
	return nil
}

func (f *fakeStore) RecordRun(_ context.Context, process string, last time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[process] = last
	return nil
}

func (f *fakeStore) GetRun(_ context.Context, process string) (*models.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	last, ok := f.runs[process]
	if !ok {
		return nil, nil
	}
	return &models.Run{Process: process, Last: last}, nil
}

func (f *fakeStore) Close() {}

type fakeFetcher struct {
	transactions []models.RawTransaction
	err          error
	gotRange     models.DateRange
}

func (f *fakeFetcher) GetTransactions(_ context.Context, _ string, rng models.DateRange) ([]models.RawTransaction, error) {
	f.gotRange = rng
	return f.transactions, f.err
}

type fakeSender struct {
	err     error
	gotUrl  string
	sent    []*chain.Envelope
}

func (f *fakeSender) SendEnvelope(_ context.Context, queueUrl string, env *chain.Envelope) error {
	if f.err != nil {
		return f.err
	}
	f.gotUrl = queueUrl
	f.sent = append(f.sent, env)
	return nil
}

type fakeTrigger struct {
	err   error
	calls int
}

func (f *fakeTrigger) Trigger(_ context.Context) error {
	f.calls++
	return f.err
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("Failed to parse decimal %q: %v", s, err)
	}
	return d
}

func generateKeyPair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key pair: %v", err)
	}
	return pub, priv
}

func genesisEntry(t *testing.T, address string) chain.Entry {
	t.Helper()
	entry, err := chain.NewEntry(chain.Payload{
		Count:     0,
		Address:   address,
		Amount:    decimal.Zero,
		Roundup:   decimal.Zero,
		Balance:   decimal.Zero,
		Currency:  "USD",
		Limit:     mustDecimal(t, "-10"),
		Timestamp: "2026-08-01T00:00:00Z",
		Reference: "genesis",
	})
	if err != nil {
		t.Fatalf("Failed to build genesis entry: %v", err)
	}
	return entry
}

// seedAddress installs an address with a genesis tip and returns the genesis
// entry.
func seedAddress(t *testing.T, f *fakeStore, address string) chain.Entry {
	t.Helper()
	genesis := genesisEntry(t, address)
	f.addresses[address] = models.Address{
		Address:           address,
		PublicKey:         "",
		LatestTransaction: genesis.Hash.Value,
	}
	f.entries[genesis.Hash.Value] = genesis
	return genesis
}
