package database

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Tx is the transactional information submitted by an originator. The
// payload is opaque to the blockchain and is interpreted by the Schema.
type Tx struct {
	ChainID uint16 `json:"chain_id"` // Ethereum: The chain id that is listed in the genesis file.
	Nonce   uint64 `json:"nonce"`    // Ethereum: Unique id for the transaction supplied by the user.
	From    string `json:"from"`     // Hex encoded compressed public key of the originator.
	Payload []byte `json:"payload"`  // Application defined data.
}

// NewTx constructs a new transaction.
func NewTx(chainID uint16, nonce uint64, from string, payload []byte) (Tx, error) {
	if !isPublicKey(from) {
		return Tx{}, fmt.Errorf("from public key is not properly formatted")
	}

	tx := Tx{
		ChainID: chainID,
		Nonce:   nonce,
		From:    from,
		Payload: payload,
	}

	return tx, nil
}

// Sign uses the specified private key to sign the transaction. The private
// key must belong to the originator named in From.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	if signature.PublicKey(privateKey) != tx.From {
		return SignedTx{}, fmt.Errorf("private key does not match from public key")
	}

	data, err := tx.SigningBytes()
	if err != nil {
		return SignedTx{}, err
	}

	sig, err := signature.Sign(data, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx:  tx,
		Sig: sig,
	}

	return signedTx, nil
}

// SigningBytes returns the bytes the signature is produced over.
func (tx Tx) SigningBytes() ([]byte, error) {
	return json.Marshal(tx)
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain.
type SignedTx struct {
	Tx
	Sig string `json:"sig"` // Hex encoded [R|S|V] signature.
}

// VerifySignature checks the signature against the originator key using
// the specified verifier.
func (tx SignedTx) VerifySignature(verifier Verifier) error {
	data, err := tx.SigningBytes()
	if err != nil {
		return err
	}

	if !verifier.Verify(tx.From, data, tx.Sig) {
		return fmt.Errorf("signature does not match originator %s", tx)
	}

	return nil
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	from := tx.From
	if len(from) > 12 {
		from = from[:12]
	}

	return fmt.Sprintf("%s:%d", from, tx.Nonce)
}

// =============================================================================

// BlockTx represents the transaction as it's recorded inside a block. This
// includes the time the node accepted it.
type BlockTx struct {
	SignedTx
	TimeStamp uint64 `json:"timestamp"` // Ethereum: The time the transaction was received.
}

// NewBlockTx constructs a new block transaction.
func NewBlockTx(signedTx SignedTx) BlockTx {
	return BlockTx{
		SignedTx:  signedTx,
		TimeStamp: uint64(time.Now().UTC().UnixMilli()),
	}
}

// Hash implements the merkle Hashable interface for providing a hash
// of a block transaction.
func (tx BlockTx) Hash() ([]byte, error) {
	return hexutil.Decode(signature.Hash(tx))
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two block transactions. If the originator, nonce and
// signatures are the same, the two transactions are the same.
func (tx BlockTx) Equals(otherTx BlockTx) bool {
	return tx.From == otherTx.From && tx.Nonce == otherTx.Nonce && tx.Sig == otherTx.Sig
}

// =============================================================================

// isPublicKey checks the value looks like a hex encoded compressed
// secp256k1 public key.
func isPublicKey(key string) bool {
	const compressedLen = 2 + 33*2

	if len(key) != compressedLen || !strings.HasPrefix(key, "0x") {
		return false
	}

	_, err := hexutil.Decode(key)
	return err == nil
}
