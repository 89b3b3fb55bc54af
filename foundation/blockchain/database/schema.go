package database

import "fmt"

// Verifier checks a signature was produced by the holder of the private key
// for the public key over the data.
type Verifier interface {
	Verify(publicKey string, data []byte, sig string) bool
}

// Schema represents the application that gives meaning to transaction
// payloads.
type Schema interface {
	ValidatePayload(payload []byte) error
	UniquenessToken(tx SignedTx) string
}

// =============================================================================

// OpaqueSchema accepts any non empty payload and identifies transactions by
// originator and nonce.
type OpaqueSchema struct{}

// ValidatePayload implements the Schema interface.
func (OpaqueSchema) ValidatePayload(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("payload is empty")
	}
	return nil
}

// UniquenessToken implements the Schema interface.
func (OpaqueSchema) UniquenessToken(tx SignedTx) string {
	return NonceToken(tx)
}

// NonceToken returns the originator:nonce token used by most schemas.
func NonceToken(tx SignedTx) string {
	return fmt.Sprintf("%s:%d", tx.From, tx.Nonce)
}
