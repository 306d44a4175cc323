package consumer

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"roundup-pipeline-go/internal/chain"
	"roundup-pipeline-go/internal/models"
	"roundup-pipeline-go/internal/store"

	"github.com/shopspring/decimal"
)

const testAddress = "wVdC5KkuhaFUGf5QGxMeWMkZHnRVdC5KkuhaFUGf5QGxMeWMkZHnRb4"

type fakeStore struct {
	addresses map[string]models.Address
	entries   map[string]chain.Entry
	tips      map[string]string
	runs      map[string]time.Time
	upserts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		addresses: make(map[string]models.Address),
		entries:   make(map[string]chain.Entry),
		tips:      make(map[string]string),
		runs:      make(map[string]time.Time),
	}
}

func (f *fakeStore) GetRoundupUsers(_ context.Context) ([]models.RoundupUser, error) {
	return nil, nil
}

func (f *fakeStore) SetLatestRoundupDate(_ context.Context, _, _ string) error { return nil }

func (f *fakeStore) GetAddress(_ context.Context, address string) (*models.Address, error) {
	addr, ok := f.addresses[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrAddressNotFound, address)
	}
	return &addr, nil
}

func (f *fakeStore) GetAddresses(_ context.Context) ([]models.Address, error) { return nil, nil }

func (f *fakeStore) SetLatestTransaction(_ context.Context, address, hashValue string) error {
	addr := f.addresses[address]
	addr.LatestTransaction = hashValue
	f.addresses[address] = addr
	f.tips[address] = hashValue
	return nil
}

func (f *fakeStore) GetChainEntry(_ context.Context, hashValue string) (*chain.Entry, error) {
	entry, ok := f.entries[hashValue]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNoPreviousChain, hashValue)
	}
	return &entry, nil
}

func (f *fakeStore) UpsertChainEntry(_ context.Context, _ string, entry chain.Entry) error {
	f.entries[entry.Hash.Value] = entry
	f.upserts++
	return nil
}

func (f *fakeStore) RecordPlaidTransaction(_ context.Context, _ store.PlaidTransactionParams) error {
	return nil
}

func (f *fakeStore) RecordRun(_ context.Context, process string, last time.Time) error {
	f.runs[process] = last
	return nil
}

func (f *fakeStore) GetRun(_ context.Context, _ string) (*models.Run, error) { return nil, nil }

func (f *fakeStore) Close() {}

// fakeQueue serves scripted batches in order, then empties.
type fakeQueue struct {
	batches  [][]models.QueueMessage
	polls    int
	deleted  []string
}

func (f *fakeQueue) Receive(_ context.Context, _ string) ([]models.QueueMessage, error) {
	f.polls++
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func (f *fakeQueue) Delete(_ context.Context, _, receiptHandle string) error {
	f.deleted = append(f.deleted, receiptHandle)
	return nil
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

func signEntry(entry *chain.Entry, privateKey ed25519.PrivateKey, kid string) {
	sig := ed25519.Sign(privateKey, []byte(entry.Hash.Value))
	entry.Signatures = append(entry.Signatures, chain.Signature{
		Header:    chain.SignatureHeader{Alg: chain.SignatureAlgEd25519, Kid: kid},
		Signature: hex.EncodeToString(sig),
	})
}

// coSignedEnvelope reproduces what the external signer returns: each entry
// signed by the address key, the envelope signed by server then address.
func coSignedEnvelope(t *testing.T, previous chain.Entry, amounts []string, serverKey, addressKey ed25519.PrivateKey) *chain.Envelope {
	t.Helper()

	items := make([]chain.BatchItem, len(amounts))
	for i, a := range amounts {
		amount := mustDecimal(t, a)
		items[i] = chain.BatchItem{
			Amount:    amount,
			Roundup:   chain.Roundup(amount),
			Date:      "2026-08-24",
			Reference: "tx-" + a,
		}
	}

	entries, err := chain.Build(testAddress, previous, items)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i := range entries {
		signEntry(&entries[i], addressKey, "address")
	}

	env := chain.NewEnvelope(testAddress, previous, entries)
	if err := chain.SignEnvelope(env, serverKey, "server"); err != nil {
		t.Fatalf("Server signing failed: %v", err)
	}
	if err := chain.SignEnvelope(env, addressKey, "address"); err != nil {
		t.Fatalf("Address signing failed: %v", err)
	}
	return env
}

func envelopeMessage(t *testing.T, env *chain.Envelope, receipt string) models.QueueMessage {
	t.Helper()
	body, err := chain.CanonicalMarshal(env)
	if err != nil {
		t.Fatalf("Failed to serialize envelope: %v", err)
	}
	return models.QueueMessage{Body: string(body), ReceiptHandle: receipt}
}

func testConsumer(fs *fakeStore, q *fakeQueue, serverPub ed25519.PublicKey) *Consumer {
	return NewConsumer(Config{
		Queue:           q,
		Store:           fs,
		FromSignerUrl:   "from-signer-url",
		ServerPublicKey: hex.EncodeToString(serverPub),
		ServerKid:       "server",
		EmptyPollLimit:  3,
	})
}

func seedAddress(t *testing.T, fs *fakeStore, addressPub ed25519.PublicKey) chain.Entry {
	t.Helper()
	genesis := genesisEntry(t, testAddress)
	fs.addresses[testAddress] = models.Address{
		Address:           testAddress,
		PublicKey:         hex.EncodeToString(addressPub),
		LatestTransaction: genesis.Hash.Value,
	}
	fs.entries[genesis.Hash.Value] = genesis
	return genesis
}

func TestRun_CommitsEnvelope(t *testing.T) {
	serverPub, serverPriv := generateKeyPair(t)
	addressPub, addressPriv := generateKeyPair(t)

	fs := newFakeStore()
	genesis := seedAddress(t, fs, addressPub)

	env := coSignedEnvelope(t, genesis, []string{"1.23", "4.56"}, serverPriv, addressPriv)
	q := &fakeQueue{batches: [][]models.QueueMessage{{envelopeMessage(t, env, "receipt-1")}}}

	if err := testConsumer(fs, q, serverPub).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(q.deleted) != 1 || q.deleted[0] != "receipt-1" {
		t.Errorf("Expected receipt-1 deleted, got %v", q.deleted)
	}

	latest := env.Payload.Transactions[1]
	if fs.tips[testAddress] != latest.Hash.Value {
		t.Errorf("Expected tip %s, got %s", latest.Hash.Value, fs.tips[testAddress])
	}
	if fs.upserts != 2 {
		t.Errorf("Expected 2 entry upserts, got %d", fs.upserts)
	}
	if _, ok := fs.runs[processName]; !ok {
		t.Error("Expected a run record after the queue drained")
	}
}

func TestRun_RejectsBadEntrySignature(t *testing.T) {
	serverPub, serverPriv := generateKeyPair(t)
	addressPub, _ := generateKeyPair(t)
	_, wrongPriv := generateKeyPair(t)

	fs := newFakeStore()
	genesis := seedAddress(t, fs, addressPub)

	// Entries signed by the wrong key; the envelope itself is well-formed.
	env := coSignedEnvelope(t, genesis, []string{"1.23"}, serverPriv, wrongPriv)
	q := &fakeQueue{batches: [][]models.QueueMessage{{envelopeMessage(t, env, "receipt-1")}}}

	if err := testConsumer(fs, q, serverPub).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(q.deleted) != 0 {
		t.Errorf("Expected no deletes for a rejected envelope, got %v", q.deleted)
	}
	if fs.tips[testAddress] != "" {
		t.Errorf("Expected tip unchanged, got %s", fs.tips[testAddress])
	}
	if fs.upserts != 0 {
		t.Errorf("Expected no upserts for a rejected envelope, got %d", fs.upserts)
	}
}

func TestRun_RejectsBadServerSignature(t *testing.T) {
	serverPub, _ := generateKeyPair(t)
	_, wrongServerPriv := generateKeyPair(t)
	addressPub, addressPriv := generateKeyPair(t)

	fs := newFakeStore()
	genesis := seedAddress(t, fs, addressPub)

	env := coSignedEnvelope(t, genesis, []string{"1.23"}, wrongServerPriv, addressPriv)
	q := &fakeQueue{batches: [][]models.QueueMessage{{envelopeMessage(t, env, "receipt-1")}}}

	if err := testConsumer(fs, q, serverPub).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(q.deleted) != 0 {
		t.Errorf("Expected no deletes, got %v", q.deleted)
	}
	if fs.upserts != 0 {
		t.Errorf("Expected no upserts, got %d", fs.upserts)
	}
}

func TestRun_RejectsStaleEnvelope(t *testing.T) {
	serverPub, serverPriv := generateKeyPair(t)
	addressPub, addressPriv := generateKeyPair(t)

	fs := newFakeStore()
	genesis := seedAddress(t, fs, addressPub)

	env := coSignedEnvelope(t, genesis, []string{"1.23"}, serverPriv, addressPriv)

	// Tip moved on since the envelope was built.
	addr := fs.addresses[testAddress]
	addr.LatestTransaction = "0000000000000000000000000000000000000000000000000000000000000000"
	fs.addresses[testAddress] = addr

	q := &fakeQueue{batches: [][]models.QueueMessage{{envelopeMessage(t, env, "receipt-1")}}}

	if err := testConsumer(fs, q, serverPub).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(q.deleted) != 0 {
		t.Errorf("Expected stale envelope left on queue, got deletes %v", q.deleted)
	}
	if fs.upserts != 0 {
		t.Errorf("Expected no upserts for a stale envelope, got %d", fs.upserts)
	}
}

func TestRun_RedeliveryOfCommittedEnvelope(t *testing.T) {
	serverPub, serverPriv := generateKeyPair(t)
	addressPub, addressPriv := generateKeyPair(t)

	fs := newFakeStore()
	genesis := seedAddress(t, fs, addressPub)

	env := coSignedEnvelope(t, genesis, []string{"1.23"}, serverPriv, addressPriv)
	q := &fakeQueue{batches: [][]models.QueueMessage{
		{envelopeMessage(t, env, "receipt-1")},
		{envelopeMessage(t, env, "receipt-2")},
	}}

	if err := testConsumer(fs, q, serverPub).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(q.deleted) != 2 {
		t.Fatalf("Expected both deliveries deleted, got %v", q.deleted)
	}

	latest := env.Payload.Transactions[0]
	if fs.tips[testAddress] != latest.Hash.Value {
		t.Errorf("Expected tip %s, got %s", latest.Hash.Value, fs.tips[testAddress])
	}
}

func TestRun_FallbackSignerKey(t *testing.T) {
	serverPub, serverPriv := generateKeyPair(t)
	signerPub, signerPriv := generateKeyPair(t)

	fs := newFakeStore()
	genesis := genesisEntry(t, testAddress)
	// Address row without its own public key.
	fs.addresses[testAddress] = models.Address{
		Address:           testAddress,
		LatestTransaction: genesis.Hash.Value,
	}
	fs.entries[genesis.Hash.Value] = genesis

	env := coSignedEnvelope(t, genesis, []string{"1.23"}, serverPriv, signerPriv)
	q := &fakeQueue{batches: [][]models.QueueMessage{{envelopeMessage(t, env, "receipt-1")}}}

	c := NewConsumer(Config{
		Queue:           q,
		Store:           fs,
		FromSignerUrl:   "from-signer-url",
		ServerPublicKey: hex.EncodeToString(serverPub),
		ServerKid:       "server",
		SignerPublicKey: hex.EncodeToString(signerPub),
		EmptyPollLimit:  3,
	})

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(q.deleted) != 1 {
		t.Errorf("Expected commit under the fallback signer key, deletes: %v", q.deleted)
	}
}

func TestRun_TerminatesAfterEmptyPolls(t *testing.T) {
	serverPub, _ := generateKeyPair(t)

	fs := newFakeStore()
	q := &fakeQueue{}

	if err := testConsumer(fs, q, serverPub).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if q.polls != 3 {
		t.Errorf("Expected 3 polls before terminating, got %d", q.polls)
	}
	if _, ok := fs.runs[processName]; !ok {
		t.Error("Expected a run record on termination")
	}
}

func TestRun_MalformedMessageLeftOnQueue(t *testing.T) {
	serverPub, _ := generateKeyPair(t)

	fs := newFakeStore()
	q := &fakeQueue{batches: [][]models.QueueMessage{
		{{Body: "not-json", ReceiptHandle: "receipt-1"}},
	}}

	if err := testConsumer(fs, q, serverPub).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(q.deleted) != 0 {
		t.Errorf("Expected malformed message left on queue, got deletes %v", q.deleted)
	}
}
