package database

import (
	"errors"
	"fmt"
)

// Set of kinds a transaction can be rejected with. These are client
// correctable and are returned to the submitter wrapped in a TxError.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrDuplicateToken   = errors.New("duplicate uniqueness token")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Set of kinds a block can be rejected with, wrapped in a BlockError.
var (
	ErrBadPredecessor               = errors.New("bad predecessor")
	ErrWorkNotSatisfied             = errors.New("work not satisfied")
	ErrNonMonotonicTimestamp        = errors.New("non monotonic timestamp")
	ErrHeightMismatch               = errors.New("height mismatch")
	ErrBadTransRoot                 = errors.New("transaction root mismatch")
	ErrTooManyTransactions          = errors.New("too many transactions")
	ErrContainsInvalidTransaction   = errors.New("contains invalid transaction")
	ErrDuplicateTransactionInBranch = errors.New("duplicate transaction in branch")
)

// Set of conditions reported by the database outside of validation.
var (
	ErrStaleBlock     = errors.New("predecessor is no longer the best tip")
	ErrBlockExists    = errors.New("block already exists")
	ErrChainCorrupted = errors.New("chain corrupted")
	ErrNoTransactions = errors.New("no transactions to mine")
	ErrNotFound       = errors.New("not found")
)

// =============================================================================

// TxError describes why a transaction was rejected. Use errors.Is with one
// of the transaction kinds to classify it.
type TxError struct {
	Kind  error
	Token string
	Err   error
}

// NewTxError constructs a TxError of the specified kind.
func NewTxError(kind error, token string, err error) *TxError {
	return &TxError{Kind: kind, Token: token, Err: err}
}

// Error implements the error interface.
func (te *TxError) Error() string {
	if te.Err == nil {
		return fmt.Sprintf("tx[%s]: %s", te.Token, te.Kind)
	}
	return fmt.Sprintf("tx[%s]: %s: %s", te.Token, te.Kind, te.Err)
}

// Unwrap returns the kind and the underlying cause.
func (te *TxError) Unwrap() []error {
	if te.Err == nil {
		return []error{te.Kind}
	}
	return []error{te.Kind, te.Err}
}

// IsTxError checks if an error of type TxError exists.
func IsTxError(err error) bool {
	var te *TxError
	return errors.As(err, &te)
}

// =============================================================================

// BlockError describes why a block was rejected. Use errors.Is with one of
// the block kinds to classify it. A block rejected for an invalid
// transaction also matches the transaction kind.
type BlockError struct {
	Kind   error
	Number uint64
	Hash   string
	Err    error
}

func newBlockError(kind error, block Block, err error) *BlockError {
	return &BlockError{Kind: kind, Number: block.Header.Number, Hash: block.Hash(), Err: err}
}

// Error implements the error interface.
func (be *BlockError) Error() string {
	if be.Err == nil {
		return fmt.Sprintf("blk[%d][%s]: %s", be.Number, be.Hash, be.Kind)
	}
	return fmt.Sprintf("blk[%d][%s]: %s: %s", be.Number, be.Hash, be.Kind, be.Err)
}

// Unwrap returns the kind and the underlying cause.
func (be *BlockError) Unwrap() []error {
	if be.Err == nil {
		return []error{be.Kind}
	}
	return []error{be.Kind, be.Err}
}

// IsBlockError checks if an error of type BlockError exists.
func IsBlockError(err error) bool {
	var be *BlockError
	return errors.As(err, &be)
}
