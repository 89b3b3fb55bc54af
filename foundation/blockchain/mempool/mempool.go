// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sort"
	"sync"

	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ebsnet/blockchain/foundation/blockchain/mempool/selector"
)

// Chain represents the view of the blockchain the mempool validates
// transactions against.
type Chain interface {
	ValidateTransaction(tx database.SignedTx) error
	Token(tx database.SignedTx) string
}

// Mempool represents a cache of validated, unconfirmed transactions keyed
// by uniqueness token. Insertion order is retained for selection.
type Mempool struct {
	mu       sync.RWMutex
	chain    Chain
	pool     map[string]selector.Entry
	next     int64 // Sequence for the next submitted transaction.
	front    int64 // Lowest sequence handed to a re-inserted transaction.
	selectFn selector.Func
}

// New constructs a new mempool using the fifo select strategy.
func New(chain Chain) (*Mempool, error) {
	return NewWithStrategy(chain, selector.StrategyFIFO)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(chain Chain, strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		chain:    chain,
		pool:     make(map[string]selector.Entry),
		next:     1,
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Contains reports if a transaction holding the token is pending.
func (mp *Mempool) Contains(token string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[token]
	return exists
}

// Submit validates the transaction against the chain and adds it to the
// pool. Submitting a transaction that is already pending is not an error
// and leaves the pool unchanged. A different transaction holding a pending
// token is rejected as a duplicate. It returns the number of transactions
// in the pool.
func (mp *Mempool) Submit(tx database.BlockTx) (int, error) {
	token := mp.chain.Token(tx.SignedTx)

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if entry, exists := mp.pool[token]; exists {
		if entry.Tx.Equals(tx) {
			return len(mp.pool), nil
		}
		return len(mp.pool), database.NewTxError(database.ErrDuplicateToken, token, nil)
	}

	if err := mp.chain.ValidateTransaction(tx.SignedTx); err != nil {
		return len(mp.pool), err
	}

	mp.pool[token] = selector.Entry{Seq: mp.next, Token: token, Tx: tx}
	mp.next++

	return len(mp.pool), nil
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(tx database.BlockTx) {
	token := mp.chain.Token(tx.SignedTx)

	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, token)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]selector.Entry)
}

// SelectCandidates uses the configured select strategy to return up to
// howMany transactions for the next block. Transactions stay in the pool
// until they are confirmed. Passing -1 returns every transaction.
func (mp *Mempool) SelectCandidates(howMany int) []database.BlockTx {
	mp.mu.RLock()
	entries := mp.ordered()
	mp.mu.RUnlock()

	return mp.selectFn(entries, howMany)
}

// Copy returns every pending transaction in insertion order.
func (mp *Mempool) Copy() []database.BlockTx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	entries := mp.ordered()

	txs := make([]database.BlockTx, len(entries))
	for i, entry := range entries {
		txs[i] = entry.Tx
	}

	return txs
}

// OnBlockConfirmed removes every transaction held by the block.
func (mp *Mempool) OnBlockConfirmed(block database.Block) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.removeBlock(block)
}

// OnBranchReplaced reconciles the pool after the best branch changed.
// Transactions confirmed on the attached blocks are removed. Transactions
// only held by the detached blocks are validated against the new best
// branch and put back ahead of the pending transactions, keeping their
// original order. It returns the number re-inserted and removed.
func (mp *Mempool) OnBranchReplaced(reorg database.Reorg) (reinserted int, removed int) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	attached := make(map[string]struct{})
	for _, block := range reorg.Attached {
		for _, tx := range block.Values() {
			attached[mp.chain.Token(tx.SignedTx)] = struct{}{}
		}
		removed += mp.removeBlock(block)
	}

	var readd []selector.Entry
	for _, block := range reorg.Detached {
		for _, tx := range block.Values() {
			token := mp.chain.Token(tx.SignedTx)

			if _, exists := attached[token]; exists {
				continue
			}

			if _, exists := mp.pool[token]; exists {
				continue
			}

			if err := mp.chain.ValidateTransaction(tx.SignedTx); err != nil {
				continue
			}

			readd = append(readd, selector.Entry{Token: token, Tx: tx})
		}
	}

	base := mp.front - int64(len(readd))
	for i, entry := range readd {
		entry.Seq = base + int64(i)
		mp.pool[entry.Token] = entry
	}
	mp.front = base

	return len(readd), removed
}

// =============================================================================

// removeBlock deletes the block's transactions. The caller must hold the lock.
func (mp *Mempool) removeBlock(block database.Block) int {
	var removed int
	for _, tx := range block.Values() {
		token := mp.chain.Token(tx.SignedTx)
		if _, exists := mp.pool[token]; exists {
			delete(mp.pool, token)
			removed++
		}
	}

	return removed
}

// ordered returns the entries sorted by sequence. The caller must hold
// the lock.
func (mp *Mempool) ordered() []selector.Entry {
	entries := make([]selector.Entry, 0, len(mp.pool))
	for _, entry := range mp.pool {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Seq < entries[j].Seq
	})

	return entries
}
