// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ebsnet/blockchain/foundation/blockchain/genesis"
	"github.com/ebsnet/blockchain/foundation/blockchain/mempool"
	"github.com/ebsnet/blockchain/foundation/blockchain/mempool/selector"
	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and persistence.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
	SignalPersist()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Genesis        genesis.Genesis
	Storage        database.Storage
	Verifier       database.Verifier
	Schema         database.Schema
	SelectStrategy string
	PruneDepth     uint64
	EvHandler      EventHandler
}

// State manages the blockchain database and the mempool. Every change to
// either one is serialized through mu so a reorganization is never seen
// half applied.
type State struct {
	mu sync.RWMutex

	evHandler  EventHandler
	genesis    genesis.Genesis
	pruneDepth uint64

	db      *database.Database
	mempool *mempool.Mempool
	storage database.Storage

	persistMu   sync.Mutex
	unpersisted []database.BlockData

	Worker Worker
}

// New constructs a new blockchain for data management. The blocks held by
// storage are replayed through validation and any failure is returned.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Storage == nil {
		return nil, errors.New("storage is required")
	}

	if cfg.Verifier == nil {
		cfg.Verifier = signature.ECDSA{}
	}

	if cfg.SelectStrategy == "" {
		cfg.SelectStrategy = selector.StrategyFIFO
	}

	db, err := database.New(database.Config{
		Genesis:   cfg.Genesis,
		Verifier:  cfg.Verifier,
		Schema:    cfg.Schema,
		EvHandler: ev,
	})
	if err != nil {
		return nil, err
	}

	// Load all existing blocks from storage into memory for processing. A
	// stored chain that does not replay cleanly can't be trusted.
	blocks, err := database.ReadAll(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", database.ErrChainCorrupted, err)
	}

	if err := db.Import(blocks); err != nil {
		return nil, err
	}

	ev("state: New: imported blocks[%d]: latestBlk[%d]", len(blocks), db.BestTip().Header.Number)

	// Construct a mempool with the specified select strategy.
	mp, err := mempool.NewWithStrategy(db, cfg.SelectStrategy)
	if err != nil {
		return nil, err
	}

	s := State{
		evHandler:  ev,
		genesis:    cfg.Genesis,
		pruneDepth: cfg.PruneDepth,
		db:         db,
		mempool:    mp,
		storage:    cfg.Storage,
	}

	// Blocks pruned at startup are dropped from storage too.
	if removed := db.Prune(cfg.PruneDepth); removed > 0 {
		ev("state: New: pruned blocks[%d]", removed)
		if err := s.ResetStorage(); err != nil {
			return nil, err
		}
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &s, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Anything accepted but not yet written still needs to be stored.
	if _, err := s.Persist(); err != nil {
		s.evHandler("state: shutdown: persist: ERROR: %s", err)
	}

	return s.storage.Close()
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}
