package state

import "github.com/ebsnet/blockchain/foundation/blockchain/database"

// queuePersist records an accepted block for storage. The caller must hold
// the state lock so blocks are queued in the order they were accepted.
func (s *State) queuePersist(blockData database.BlockData) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.unpersisted = append(s.unpersisted, blockData)
}

// Persist writes every accepted block not yet written to storage, in the
// order they were accepted. A block that fails to write stays queued along
// with the blocks after it. It returns the number of blocks written.
func (s *State) Persist() (int, error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	for i, blockData := range s.unpersisted {
		if err := s.storage.Write(blockData); err != nil {
			s.unpersisted = s.unpersisted[i:]
			return i, err
		}
		s.evHandler("state: Persist: blk[%d]: hash[%s]", blockData.Header.Number, blockData.Hash)
	}

	written := len(s.unpersisted)
	s.unpersisted = nil

	return written, nil
}

// ExportChain returns every accepted block, orphaned ones included, in the
// canonical order used for storage: genesis first and height ascending.
func (s *State) ExportChain() []database.BlockData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Export()
}

// ResetStorage rewrites storage from the blocks currently held in memory.
// Blocks removed by pruning are dropped from storage as well.
func (s *State) ResetStorage() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.resetStorage()
}

// resetStorage replaces the stored chain with every block held apart from
// genesis. The caller must hold the state lock.
func (s *State) resetStorage() error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	blocks := s.db.Export()

	if err := s.storage.Replace(blocks[1:]); err != nil {
		return err
	}
	s.unpersisted = nil

	s.evHandler("state: ResetStorage: written blocks[%d]", len(blocks)-1)

	return nil
}
