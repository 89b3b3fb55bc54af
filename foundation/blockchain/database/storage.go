package database

import (
	"fmt"
	"sort"
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	Write(blockData BlockData) error
	ForEach() Iterator
	Close() error
	Replace(blocks []BlockData) error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// ReadAll walks the storage and returns every block it holds in the order
// they were written.
func ReadAll(storage Storage) ([]BlockData, error) {
	var blocks []BlockData

	iter := storage.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, blockData)
	}

	return blocks, nil
}

// =============================================================================

// Export returns every block held by the database in the canonical order:
// genesis first, then by height ascending, and by arrival within a height.
func (db *Database) Export() []BlockData {
	db.mu.RLock()
	defer db.mu.RUnlock()

	nodes := make([]*node, 0, len(db.nodes))
	for _, nd := range db.nodes {
		nodes = append(nodes, nd)
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].block.Header.Number != nodes[j].block.Header.Number {
			return nodes[i].block.Header.Number < nodes[j].block.Header.Number
		}
		return nodes[i].arrival < nodes[j].arrival
	})

	blocks := make([]BlockData, len(nodes))
	for i, nd := range nodes {
		blocks[i] = NewBlockData(nd.block)
	}

	return blocks
}

// Import replays the specified blocks through validation. Any block that
// does not validate means the persisted chain is inconsistent and an error
// wrapping ErrChainCorrupted is returned, as it is for a block listed more
// than once. A genesis block in the set must match the pinned genesis.
func (db *Database) Import(blocks []BlockData) error {
	genesisHash := db.genesis.hash
	seen := make(map[string]int, len(blocks))

	for i, blockData := range blocks {
		block, err := ToBlock(blockData)
		if err != nil {
			return fmt.Errorf("%w: entry %d: %w", ErrChainCorrupted, i, err)
		}

		hash := block.Hash()
		if blockData.Hash != "" && blockData.Hash != hash {
			return fmt.Errorf("%w: entry %d: hash mismatch, got %s, exp %s", ErrChainCorrupted, i, hash, blockData.Hash)
		}

		if prev, exists := seen[hash]; exists {
			return fmt.Errorf("%w: entry %d: duplicate of entry %d", ErrChainCorrupted, i, prev)
		}
		seen[hash] = i

		if block.Header.Number == 0 {
			if hash != genesisHash {
				return fmt.Errorf("%w: entry %d: genesis mismatch, got %s, exp %s", ErrChainCorrupted, i, hash, genesisHash)
			}
			continue
		}

		if _, err := db.Add(block); err != nil {
			return fmt.Errorf("%w: entry %d: %w", ErrChainCorrupted, i, err)
		}
	}

	return nil
}
