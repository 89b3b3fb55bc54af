package state

import (
	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// =============================================================================

// Status represents a summary of the node's view of the chain.
type Status struct {
	LatestBlockHash   string         `json:"latest_block_hash"`
	LatestBlockNumber uint64         `json:"latest_block_number"`
	Work              string         `json:"work"`
	NextTarget        string         `json:"next_target"`
	Blocks            int            `json:"blocks"`
	Pending           int            `json:"pending"`
	Tips              []database.Tip `json:"tips"`
}

// Proof represents what a client needs to check that a confirmed
// transaction is covered by the transaction root of its block.
type Proof struct {
	BlockHash   string           `json:"block_hash"`
	BlockNumber uint64           `json:"block_number"`
	TransRoot   string           `json:"trans_root"`
	Tx          database.BlockTx `json:"tx"`
	Leaf        string           `json:"leaf"`
	Hashes      []string         `json:"hashes"`
	Order       []int64          `json:"order"`
}

// =============================================================================

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.BestTip()
}

// RetrieveMempool returns a copy of the mempool in selection order.
func (s *State) RetrieveMempool() []database.BlockTx {
	return s.mempool.SelectCandidates(-1)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlocksByNumber returns the blocks of the best branch between the
// specified numbers inclusive.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := s.db.BestTip().Header.Number
	if from == QueryLatest {
		from = latest
		to = from
	}
	if to == QueryLatest {
		to = latest
	}

	return s.db.GetBranch(from, to)
}

// QueryBlockByHash returns the block for the hash and if it is on the best
// branch or orphaned.
func (s *State) QueryBlockByHash(hash string) (database.Block, database.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.BlockByHash(hash)
}

// QueryTransaction returns the transaction confirmed on the best branch for
// the specified uniqueness token, along with an inclusion proof.
func (s *State) QueryTransaction(token string) (Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	block, tx, err := s.db.FindTransaction(token)
	if err != nil {
		return Proof{}, err
	}

	proof, order, err := block.Trans.Proof(tx)
	if err != nil {
		return Proof{}, err
	}

	leaf, err := tx.Hash()
	if err != nil {
		return Proof{}, err
	}

	hashes := make([]string, len(proof))
	for i, h := range proof {
		hashes[i] = hexutil.Encode(h)
	}

	p := Proof{
		BlockHash:   block.Hash(),
		BlockNumber: block.Header.Number,
		TransRoot:   block.Header.TransRoot,
		Tx:          tx,
		Leaf:        hexutil.Encode(leaf),
		Hashes:      hashes,
		Order:       order,
	}

	return p, nil
}

// QueryStatus returns a summary of the chain and the mempool.
func (s *State) QueryStatus() (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, err := s.db.NextTarget()
	if err != nil {
		return Status{}, err
	}

	latest := s.db.BestTip()

	status := Status{
		LatestBlockHash:   latest.Hash(),
		LatestBlockNumber: latest.Header.Number,
		Work:              hexutil.EncodeBig(s.db.BestWork()),
		NextTarget:        hexutil.EncodeBig(target),
		Blocks:            s.db.Count(),
		Pending:           s.mempool.Count(),
		Tips:              s.db.Tips(),
	}

	return status, nil
}
