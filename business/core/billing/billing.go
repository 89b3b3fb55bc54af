// Package billing gives meaning to transaction payloads for a metering
// application. Meters record usage signed by the user and the provider
// records a billing entry naming the user once an invoice was issued.
package billing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ebsnet/blockchain/business/sys/validate"
	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Set of record kinds a payload can carry.
const (
	KindBilling = "billing"
	KindUsage   = "usage"
)

// ErrNotInitialized is returned when no billing record exists for a user.
var ErrNotInitialized = errors.New("billing not initialized")

// Record is the payload of a transaction handled by this schema.
type Record struct {
	Kind        string `json:"kind" validate:"required,oneof=billing usage"`
	Fingerprint string `json:"fingerprint,omitempty" validate:"required_if=Kind billing"`
	Usage       uint64 `json:"usage,omitempty" validate:"required_if=Kind usage"`
}

// NewBilling constructs the record a provider submits after billing the
// user identified by the fingerprint.
func NewBilling(fingerprint string) Record {
	return Record{
		Kind:        KindBilling,
		Fingerprint: fingerprint,
	}
}

// NewUsage constructs the record a meter submits for consumed units.
func NewUsage(usage uint64) Record {
	return Record{
		Kind:  KindUsage,
		Usage: usage,
	}
}

// Validate checks the record is well formed.
func (r Record) Validate() error {
	if err := validate.Check(r); err != nil {
		return err
	}

	switch r.Kind {
	case KindBilling:
		if err := validate.Var(r.Fingerprint, "len=66,hexadecimal"); err != nil {
			return fmt.Errorf("fingerprint is not a hex encoded hash")
		}
	case KindUsage:
		if r.Fingerprint != "" {
			return fmt.Errorf("usage record can't name a fingerprint")
		}
	}

	return nil
}

// Encode returns the payload bytes for the record.
func (r Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Decode parses a payload into a record. Unknown fields are refused.
func Decode(payload []byte) (Record, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()

	var r Record
	if err := decoder.Decode(&r); err != nil {
		return Record{}, fmt.Errorf("decoding record: %w", err)
	}

	return r, nil
}

// =============================================================================

// Schema implements the database Schema interface for billing records.
type Schema struct{}

// ValidatePayload implements the database Schema interface.
func (Schema) ValidatePayload(payload []byte) error {
	r, err := Decode(payload)
	if err != nil {
		return err
	}

	return r.Validate()
}

// UniquenessToken implements the database Schema interface.
func (Schema) UniquenessToken(tx database.SignedTx) string {
	return database.NonceToken(tx)
}

// =============================================================================

// Fingerprint returns the identity of a user as the hash of the hex encoded
// compressed public key.
func Fingerprint(publicKey string) (string, error) {
	pk, err := hexutil.Decode(publicKey)
	if err != nil {
		return "", fmt.Errorf("decoding public key: %w", err)
	}

	return signature.HashBytes(pk), nil
}

// SinceLastBilling returns the blocks following the last block holding a
// billing record for the fingerprint signed by the provider. The blocks must
// be a branch ordered from genesis to tip.
func SinceLastBilling(blocks []database.Block, provider string, fingerprint string) ([]database.Block, error) {
	for i := len(blocks) - 1; i >= 0; i-- {
		for _, tx := range blocks[i].Values() {
			if tx.From != provider {
				continue
			}

			r, err := Decode(tx.Payload)
			if err != nil {
				continue
			}

			if r.Kind == KindBilling && r.Fingerprint == fingerprint {
				return blocks[i+1:], nil
			}
		}
	}

	return nil, ErrNotInitialized
}

// =============================================================================

// Position is a single usage entry of an invoice.
type Position struct {
	BlockNumber uint64 `json:"block_number"`
	TimeStamp   uint64 `json:"timestamp"`
	Usage       uint64 `json:"usage"`
}

// Invoice summarizes the usage a user recorded over a set of blocks.
type Invoice struct {
	User        string     `json:"user"`
	Fingerprint string     `json:"fingerprint"`
	Positions   []Position `json:"positions"`
	Total       uint64     `json:"total"`
}

// NewInvoice collects the usage records signed by the user in the blocks.
func NewInvoice(blocks []database.Block, user string) (Invoice, error) {
	fingerprint, err := Fingerprint(user)
	if err != nil {
		return Invoice{}, err
	}

	inv := Invoice{
		User:        user,
		Fingerprint: fingerprint,
		Positions:   []Position{},
	}

	for _, block := range blocks {
		for _, tx := range block.Values() {
			if tx.From != user {
				continue
			}

			r, err := Decode(tx.Payload)
			if err != nil || r.Kind != KindUsage {
				continue
			}

			inv.Positions = append(inv.Positions, Position{
				BlockNumber: block.Header.Number,
				TimeStamp:   tx.TimeStamp,
				Usage:       r.Usage,
			})
			inv.Total += r.Usage
		}
	}

	return inv, nil
}
