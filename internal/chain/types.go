package chain

import (
	"errors"

	"github.com/shopspring/decimal"
)

func init() {
	// Hashed payloads carry money as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Sentinel errors for chain building and verification.
var (
	ErrInvalidAmount                   = errors.New("invalid amount")
	ErrInvalidTransactionInput         = errors.New("invalid transaction input")
	ErrInvalidTransactionAmount        = errors.New("invalid transaction amount")
	ErrInvalidTransactionRoundup       = errors.New("invalid transaction roundup")
	ErrAddressMismatch                 = errors.New("address mismatch")
	ErrInvalidPreviousTransaction      = errors.New("invalid previous transaction")
	ErrPreviousTransactionHashMismatch = errors.New("previous transaction hash mismatch")
	ErrInvalidSignature                = errors.New("invalid signature")
	ErrNoTransactionChain              = errors.New("no transaction chain")
)

// HashTypeSha256 is the only hash type the chain produces.
const HashTypeSha256 = "sha256"

// SignatureAlgEd25519 is the only signature algorithm the chain produces.
const SignatureAlgEd25519 = "ed25519"

// Hash names a digest over a canonical-JSON payload.
type Hash struct {
	Type  string `json:"type"`
	Value string `json:"value"` // lowercase hex
}

// SignatureHeader identifies the algorithm and key of one signature.
type SignatureHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// Signature is one detached signature over a hash value.
type Signature struct {
	Header    SignatureHeader `json:"header"`
	Signature string          `json:"signature"` // hex-encoded ed25519 signature
}

// Payload is the hashed body of one chain entry. Previous is nil only for
// the genesis entry of an address.
type Payload struct {
	Count     int64           `json:"count"`
	Address   string          `json:"address"`
	Amount    decimal.Decimal `json:"amount"`
	Roundup   decimal.Decimal `json:"roundup"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Limit     decimal.Decimal `json:"limit"`
	Previous  *string         `json:"previous"`
	Timestamp string          `json:"timestamp"`
	Reference string          `json:"reference"`
}

// Entry is one hashed payload plus its signatures. Entry n's payload names
// entry n-1 by hash.
type Entry struct {
	Hash       Hash        `json:"hash"`
	Payload    Payload     `json:"payload"`
	Signatures []Signature `json:"signatures"`
}

// EnvelopePayload carries the previous chain tip by value alongside the new
// batch of entries.
type EnvelopePayload struct {
	Address      string  `json:"address"`
	Previous     Entry   `json:"previous"`
	Transactions []Entry `json:"transactions"`
}

// Envelope is the object submitted to the external signer: the previous tip,
// the new batch, and a signature set. On commit it carries exactly two
// signatures: the server long-term key first, the address key second.
type Envelope struct {
	Hash       Hash            `json:"hash"`
	Payload    EnvelopePayload `json:"payload"`
	Signatures []Signature     `json:"signatures"`
}

// NewEntry hashes the payload and wraps it in an unsigned entry.
func NewEntry(payload Payload) (Entry, error) {
	digest, err := HashPayload(payload)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Hash:       Hash{Type: HashTypeSha256, Value: digest},
		Payload:    payload,
		Signatures: []Signature{},
	}, nil
}

// NewEnvelope assembles an unsigned envelope around a built batch.
func NewEnvelope(address string, previous Entry, entries []Entry) *Envelope {
	return &Envelope{
		Hash: Hash{Type: HashTypeSha256},
		Payload: EnvelopePayload{
			Address:      address,
			Previous:     previous,
			Transactions: entries,
		},
		Signatures: []Signature{},
	}
}
