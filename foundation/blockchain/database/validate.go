package database

import (
	"errors"
	"fmt"
	"math/big"
)

// Rules bundles what is needed to validate transactions and blocks.
type Rules struct {
	ChainID       uint16
	TransPerBlock uint16
	Verifier      Verifier
	Schema        Schema
}

// Token returns the uniqueness token for the transaction.
func (r Rules) Token(tx SignedTx) string {
	return r.Schema.UniquenessToken(tx)
}

// ValidateTransaction checks the transaction signature and payload, and that
// its uniqueness token has not been seen in the context described by seen.
// A nil seen function means there is no context to check against.
func (r Rules) ValidateTransaction(tx SignedTx, seen func(token string) bool) error {
	token := r.Token(tx)

	if err := tx.VerifySignature(r.Verifier); err != nil {
		return NewTxError(ErrInvalidSignature, token, err)
	}

	if tx.ChainID != r.ChainID {
		return NewTxError(ErrMalformedPayload, token, fmt.Errorf("wrong chain id, got %d, exp %d", tx.ChainID, r.ChainID))
	}

	if err := r.Schema.ValidatePayload(tx.Payload); err != nil {
		return NewTxError(ErrMalformedPayload, token, err)
	}

	if seen != nil && seen(token) {
		return NewTxError(ErrDuplicateToken, token, nil)
	}

	return nil
}

// ValidateBlock takes a block and validates it against its predecessor and
// the target the difficulty strategy expects. The seen function reports if
// a token is confirmed on the branch ending at the predecessor.
func (r Rules) ValidateBlock(block Block, prev Block, target *big.Int, seen func(token string) bool, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	nextNumber := prev.Header.Number + 1

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", block.Header.Number)

	if block.Header.PrevBlockHash != prev.Hash() {
		return newBlockError(ErrBadPredecessor, block, fmt.Errorf("got %s, exp %s", block.Header.PrevBlockHash, prev.Hash()))
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", block.Header.Number)

	if block.Header.Number != nextNumber {
		return newBlockError(ErrHeightMismatch, block, fmt.Errorf("got %d, exp %d", block.Header.Number, nextNumber))
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is not before parent block's timestamp", block.Header.Number)

	if block.Header.TimeStamp < prev.Header.TimeStamp {
		return newBlockError(ErrNonMonotonicTimestamp, block, fmt.Errorf("parent %d, block %d", prev.Header.TimeStamp, block.Header.TimeStamp))
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block target is the expected target", block.Header.Number)

	if block.Header.TargetInt().Cmp(target) != 0 {
		return newBlockError(ErrWorkNotSatisfied, block, fmt.Errorf("target %s, exp %s", block.Header.TargetInt().Text(16), target.Text(16)))
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", block.Header.Number)

	if !SolvesTarget(block.Hash(), target) {
		return newBlockError(ErrWorkNotSatisfied, block, nil)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: merkle root does match transactions", block.Header.Number)

	if block.Trans == nil || block.Header.TransRoot != block.Trans.RootHex() {
		return newBlockError(ErrBadTransRoot, block, nil)
	}

	trans := block.Values()

	evHandler("database: ValidateBlock: validate: blk[%d]: check: transactions are valid and not repeated in the branch", block.Header.Number)

	if r.TransPerBlock > 0 && len(trans) > int(r.TransPerBlock) {
		return newBlockError(ErrTooManyTransactions, block, fmt.Errorf("got %d, max %d", len(trans), r.TransPerBlock))
	}

	inBlock := make(map[string]struct{}, len(trans))
	seenInBranch := func(token string) bool {
		if _, exists := inBlock[token]; exists {
			return true
		}
		return seen != nil && seen(token)
	}

	for _, tx := range trans {
		err := r.ValidateTransaction(tx.SignedTx, seenInBranch)
		switch {
		case errors.Is(err, ErrDuplicateToken):
			return newBlockError(ErrDuplicateTransactionInBranch, block, err)
		case err != nil:
			return newBlockError(ErrContainsInvalidTransaction, block, err)
		}

		inBlock[r.Token(tx.SignedTx)] = struct{}{}
	}

	return nil
}
