// Package memory implements the ability to read and write blocks to memory
// using a slice.
package memory

import (
	"errors"
	"sync"

	"github.com/ebsnet/blockchain/foundation/blockchain/database"
)

// Memory represents the serialization implementation for reading and storing
// blocks in memory using a slice. This implements the database.Storage
// interface.
type Memory struct {
	mu     sync.RWMutex
	blocks []database.BlockData
	hashes map[string]struct{}
}

// New constructs an Memory value for use.
func New() *Memory {
	return &Memory{
		hashes: make(map[string]struct{}),
	}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write takes the specified block and stores it in memory. A block must be
// written after its predecessor.
func (m *Memory) Write(blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.hashes[blockData.Hash]; exists {
		return errors.New("block already stored")
	}

	if blockData.Header.Number > 1 {
		if _, exists := m.hashes[blockData.Header.PrevBlockHash]; !exists {
			return errors.New("block is out of order")
		}
	}

	m.blocks = append(m.blocks, blockData)
	m.hashes[blockData.Hash] = struct{}{}

	return nil
}

// Len returns the number of blocks held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.blocks)
}

// ForEach returns an iterator to walk through all the blocks in the order
// they were written.
func (m *Memory) ForEach() database.Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := make([]database.BlockData, len(m.blocks))
	copy(blocks, m.blocks)

	return &memoryIterator{blocks: blocks}
}

// Replace swaps the blocks held in memory for the specified blocks.
func (m *Memory) Replace(blocks []database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = make([]database.BlockData, len(blocks))
	copy(m.blocks, blocks)

	m.hashes = make(map[string]struct{}, len(blocks))
	for _, blockData := range blocks {
		m.hashes[blockData.Hash] = struct{}{}
	}

	return nil
}

// =============================================================================

// memoryIterator represents the iteration implementation for walking
// through a snapshot of the blocks. This implements the database
// Iterator interface.
type memoryIterator struct {
	blocks  []database.BlockData
	current int
	eoc     bool
}

// Next retrieves the next block.
func (mi *memoryIterator) Next() (database.BlockData, error) {
	if mi.eoc || mi.current >= len(mi.blocks) {
		mi.eoc = true
		return database.BlockData{}, errors.New("end of chain")
	}

	blockData := mi.blocks[mi.current]
	mi.current++

	return blockData, nil
}

// Done returns the end of chain value.
func (mi *memoryIterator) Done() bool {
	return mi.eoc
}
