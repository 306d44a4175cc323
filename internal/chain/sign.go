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
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// SignEnvelope computes the canonical hash over the envelope payload, stores
// it as the envelope hash, and appends a detached ed25519 signature over the
// ASCII bytes of the hex digest.
func SignEnvelope(env *Envelope, privateKey ed25519.PrivateKey, kid string) error {
	digest, err := HashPayload(env.Payload)
	if err != nil {
		return fmt.Errorf("unable to hash envelope payload: %w", err)
	}
	env.Hash.Type = HashTypeSha256
	env.Hash.Value = digest

	sig := ed25519.Sign(privateKey, []byte(digest))
	if len(sig) == 0 {
		return fmt.Errorf("%w: signing produced no bytes", ErrInvalidSignature)
	}

	env.Signatures = append(env.Signatures, Signature{
		Header:    SignatureHeader{Alg: SignatureAlgEd25519, Kid: kid},
		Signature: hex.EncodeToString(sig),
	})
	return nil
}

// VerifyLastSignature recomputes the canonical hash over the envelope
// payload, compares it against the carried hash value, and verifies the last
// signature against that hash. Returns false on any failure.
func (e *Envelope) VerifyLastSignature(publicKeyHex string) bool {
	if len(e.Signatures) == 0 {
		return false
	}
	return verifySignature(e.Payload, e.Hash, e.Signatures[len(e.Signatures)-1], publicKeyHex)
}

// VerifySignatureByKid verifies the most recent signature carried under the
// given kid. From-signer envelopes carry the server kid first and the
// address kid second, so the consumer's outer check selects by kid.
func (e *Envelope) VerifySignatureByKid(publicKeyHex, kid string) bool {
	for i := len(e.Signatures) - 1; i >= 0; i-- {
		if e.Signatures[i].Header.Kid == kid {
			return verifySignature(e.Payload, e.Hash, e.Signatures[i], publicKeyHex)
		}
	}
	return false
}

// VerifyLastSignature verifies the last signature on a single chain entry
// against its recomputed payload hash. Returns false on any failure.
func (e *Entry) VerifyLastSignature(publicKeyHex string) bool {
	if len(e.Signatures) == 0 {
		return false
	}
	return verifySignature(e.Payload, e.Hash, e.Signatures[len(e.Signatures)-1], publicKeyHex)
}

func verifySignature(payload any, carried Hash, sig Signature, publicKeyHex string) bool {
	digest, err := HashPayload(payload)
	if err != nil {
		return false
	}
	if digest != carried.Value {
		return false
	}

	publicKey, err := ParsePublicKey(publicKeyHex)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(sig.Signature)
	if err != nil {
		return false
	}
	return ed25519.Verify(publicKey, []byte(digest), sigBytes)
}

// ParsePublicKey decodes a hex-encoded ed25519 public key.
func ParsePublicKey(publicKeyHex string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key length %d, expected %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// ParsePrivateKey decodes a hex-encoded ed25519 private key. Both the
// 32-byte seed form and the full 64-byte form are accepted.
func ParsePrivateKey(privateKeyHex string) (ed25519.PrivateKey, error) {
	raw, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("invalid private key length %d, expected %d or %d",
			len(raw), ed25519.SeedSize, ed25519.PrivateKeySize)
	}
}
