package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ebsnet/blockchain/foundation/blockchain/database"
)

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain. The best tip, target and candidate transactions
// are read under the lock and the nonce search runs without it. If the best
// tip moved while mining, ErrStaleBlock is returned and the block is dropped.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: snapshot best tip")

	s.mu.RLock()
	prevBlock := s.db.BestTip()
	target, err := s.db.NextTarget()
	trans := s.mempool.SelectCandidates(int(s.genesis.TransPerBlock))
	s.mu.RUnlock()

	if err != nil {
		return database.Block{}, err
	}

	// Are there transactions in the pool.
	if len(trans) == 0 {
		return database.Block{}, database.ErrNoTransactions
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: prevBlk[%d]: txs[%d]", prevBlock.Header.Number, len(trans))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, database.POWArgs{
		PrevBlock: prevBlock,
		Target:    target,
		Trans:     trans,
		EvHandler: s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	if _, err := s.acceptBlock(block, true); err != nil {
		return database.Block{}, err
	}
	s.Worker.SignalPersist()

	return block, nil
}

// ProcessProposedBlock takes a block received from outside this node,
// validates it and if that passes, adds the block to the local blockchain.
// If the block moves the best tip, any mining in progress is cancelled.
func (s *State) ProcessProposedBlock(block database.Block) (database.Reorg, error) {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.Header.PrevBlockHash, block.Hash(), len(block.Values()))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash())

	reorg, err := s.acceptBlock(block, false)
	if err != nil {
		return database.Reorg{}, err
	}
	s.Worker.SignalPersist()

	if reorg.TipChanged() {

		// If the runMiningOperation function is being executed it needs to
		// stop immediately. The G executing runMiningOperation will not return
		// from the function until done is called.
		done := s.Worker.SignalCancelMining()
		s.evHandler("state: ProcessProposedBlock: signal runMiningOperation to terminate")
		done()
	}

	return reorg, nil
}

// =============================================================================

// acceptBlock adds the block to the database under the lock and reconciles
// the mempool with the resulting best branch. When mustExtend is set, the
// block is only accepted if its predecessor is still the best tip.
func (s *State) acceptBlock(block database.Block, mustExtend bool) (database.Reorg, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mustExtend {
		if tip := s.db.BestTip(); block.Header.PrevBlockHash != tip.Hash() {
			return database.Reorg{}, fmt.Errorf("mined on blk[%d], best is blk[%d]: %w", block.Header.Number-1, tip.Header.Number, database.ErrStaleBlock)
		}
	}

	s.evHandler("state: acceptBlock: add block: blk[%d]", block.Header.Number)

	reorg, err := s.db.Add(block)
	if err != nil {
		return database.Reorg{}, err
	}

	s.queuePersist(database.NewBlockData(block))

	switch {
	case !reorg.TipChanged():
		s.evHandler("state: acceptBlock: blk[%d]: stored on a side branch", block.Header.Number)

	case reorg.Extended():
		removed := s.mempool.OnBlockConfirmed(block)
		s.evHandler("state: acceptBlock: blk[%d]: extends best branch: removed from mempool[%d]", block.Header.Number, removed)

	default:
		reinserted, removed := s.mempool.OnBranchReplaced(reorg)
		s.evHandler("state: acceptBlock: blk[%d]: REORG: ancestor[%d]: reinserted[%d]: removed[%d]", block.Header.Number, reorg.Ancestor.Header.Number, reinserted, removed)
	}

	// Pruned blocks must not come back from storage on the next start.
	if removed := s.db.Prune(s.pruneDepth); removed > 0 {
		s.evHandler("state: acceptBlock: pruned blocks[%d]", removed)
		if err := s.resetStorage(); err != nil {
			s.evHandler("state: acceptBlock: reset storage: ERROR: %s", err)
		}
	}

	// Send an event about this new block.
	s.blockEvent(block, reorg)

	return reorg, nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block, reorg database.Reorg) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTransJSON, err := json.Marshal(block.Values())
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"best":%t,"header":%s,"trans":%s}`, block.Hash(), reorg.TipChanged(), string(blockHeaderJSON), string(blockTransJSON))
}

// IsStale reports if the error means a mined block lost the race against
// another block and mining should start again.
func IsStale(err error) bool {
	return errors.Is(err, database.ErrStaleBlock)
}
