// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0x0000000000000000000000000000000000000000000000000000000000000000"

// HashLength is the number of bytes in a hash produced by this package.
const HashLength = sha256.Size

// =============================================================================

// Hash returns a unique string for the value.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	return HashBytes(data)
}

// HashBytes returns the hex encoded sha256 digest of the data.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hexutil.Encode(hash[:])
}

// Sign uses the specified private key to sign the data. The signature is
// returned hex encoded in the [R|S|V] format.
func Sign(data []byte, privateKey *ecdsa.PrivateKey) (string, error) {

	// Sign the stamped hash with the private key to produce a signature.
	sig, err := crypto.Sign(stamp(data), privateKey)
	if err != nil {
		return "", err
	}

	return hexutil.Encode(sig), nil
}

// Verify checks the signature was produced by the holder of the private key
// for the specified public key over the data.
func Verify(publicKey string, data []byte, sig string) error {
	pk, err := hexutil.Decode(publicKey)
	if err != nil {
		return fmt.Errorf("decoding public key: %w", err)
	}

	sigBytes, err := hexutil.Decode(sig)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}

	if len(sigBytes) != crypto.SignatureLength {
		return fmt.Errorf("invalid signature length %d", len(sigBytes))
	}

	// The recovery id is not needed for verification, only [R|S].
	if !crypto.VerifySignature(pk, stamp(data), sigBytes[:crypto.RecoveryIDOffset]) {
		return errors.New("signature does not match public key")
	}

	return nil
}

// PublicKey returns the hex encoded compressed public key for the private key.
// This is the value used as the originator of a transaction.
func PublicKey(privateKey *ecdsa.PrivateKey) string {
	return hexutil.Encode(crypto.CompressPubkey(&privateKey.PublicKey))
}

// =============================================================================

// ECDSA implements the verifier behavior required by the blockchain using
// secp256k1 signatures.
type ECDSA struct{}

// Verify implements the database.Verifier interface.
func (ECDSA) Verify(publicKey string, data []byte, sig string) bool {
	return Verify(publicKey, data, sig) == nil
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this data with
// the EBS stamp embedded into the final hash.
func stamp(data []byte) []byte {

	// Hash the data into a 32 byte array. This will provide
	// a data length consistency with all data.
	txHash := crypto.Keccak256(data)

	// This stamp is used so signatures we produce when signing data
	// are always unique to this blockchain.
	stamp := []byte("\x19EBS Signed Message:\n32")

	return crypto.Keccak256(stamp, txHash)
}
