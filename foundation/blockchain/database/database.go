// Package database handles all the lower level support for maintaining the
// blockchain in memory: the block arena, validation, and fork choice.
package database

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ebsnet/blockchain/foundation/blockchain/difficulty"
	"github.com/ebsnet/blockchain/foundation/blockchain/genesis"
)

// Status describes where a block sits relative to the best branch.
type Status string

// Set of block statuses.
const (
	StatusConfirmed Status = "confirmed"
	StatusOrphaned  Status = "orphaned"
)

// Config represents the configuration required to construct a database.
type Config struct {
	Genesis    genesis.Genesis
	Verifier   Verifier
	Schema     Schema
	Difficulty difficulty.Strategy
	EvHandler  func(v string, args ...any)
}

// Reorg describes how the best branch changed when a block was added. When
// the tip did not move, OldTip, NewTip and Ancestor are the current best tip
// and both slices are empty.
type Reorg struct {
	OldTip   Block
	NewTip   Block
	Ancestor Block
	Detached []Block // Blocks that left the best branch, height ascending.
	Attached []Block // Blocks that joined the best branch, height ascending.
}

// TipChanged reports if the best tip moved.
func (r Reorg) TipChanged() bool {
	return len(r.Attached) > 0
}

// Extended reports if the tip moved without leaving the old best branch.
func (r Reorg) Extended() bool {
	return r.TipChanged() && len(r.Detached) == 0
}

// Tip describes the end of a branch.
type Tip struct {
	Hash   string   `json:"hash"`
	Number uint64   `json:"number"`
	Work   *big.Int `json:"work"`
	Status Status   `json:"status"`
}

// node is what the arena stores for every accepted block.
type node struct {
	hash    string
	block   Block
	work    *big.Int // Cumulative work from genesis through this block.
	arrival uint64
	tokens  []string
}

// =============================================================================

// Database manages the set of accepted blocks keyed by hash and tracks the
// branch with the greatest cumulative work.
type Database struct {
	mu sync.RWMutex

	rules      Rules
	difficulty difficulty.Strategy
	evHandler  func(v string, args ...any)

	genesis  *node
	nodes    map[string]*node
	children map[string][]string
	tokens   map[string][]string // Token to the hashes of blocks holding it.
	best     []*node             // Best branch indexed by height.
	arrivals uint64
}

// New constructs a database holding only the genesis block.
func New(cfg Config) (*Database, error) {
	if cfg.Verifier == nil {
		return nil, errors.New("verifier is required")
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	if cfg.Schema == nil {
		cfg.Schema = OpaqueSchema{}
	}

	if cfg.Difficulty == nil {
		strategy, err := difficulty.Retrieve(cfg.Genesis)
		if err != nil {
			return nil, err
		}
		cfg.Difficulty = strategy
	}

	ev := cfg.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	block, err := NewGenesisBlock(cfg.Genesis)
	if err != nil {
		return nil, err
	}

	gen := node{
		hash:  block.Hash(),
		block: block,
		work:  Work(block.Header.TargetInt()),
	}

	db := Database{
		rules: Rules{
			ChainID:       cfg.Genesis.ChainID,
			TransPerBlock: cfg.Genesis.TransPerBlock,
			Verifier:      cfg.Verifier,
			Schema:        cfg.Schema,
		},
		difficulty: cfg.Difficulty,
		evHandler:  ev,
		genesis:    &gen,
		nodes:      map[string]*node{gen.hash: &gen},
		children:   make(map[string][]string),
		tokens:     make(map[string][]string),
		best:       []*node{&gen},
	}

	return &db, nil
}

// Rules returns the validation rules used by the database.
func (db *Database) Rules() Rules {
	return db.rules
}

// Token returns the uniqueness token for the transaction.
func (db *Database) Token(tx SignedTx) string {
	return db.rules.Token(tx)
}

// Genesis returns the genesis block.
func (db *Database) Genesis() Block {
	return db.genesis.block
}

// =============================================================================

// Add validates the block against its claimed predecessor and stores it. If
// the block's branch now holds strictly more cumulative work than the best
// branch, the block becomes the new best tip. Ties keep the existing tip.
func (db *Database) Add(block Block) (Reorg, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	hash := block.Hash()

	if _, exists := db.nodes[hash]; exists {
		return Reorg{}, newBlockError(ErrBlockExists, block, nil)
	}

	parent, exists := db.nodes[block.Header.PrevBlockHash]
	if !exists {
		return Reorg{}, newBlockError(ErrBadPredecessor, block, fmt.Errorf("unknown block %s", block.Header.PrevBlockHash))
	}

	target, err := db.nextTarget(parent)
	if err != nil {
		return Reorg{}, newBlockError(ErrWorkNotSatisfied, block, err)
	}

	view := db.viewOf(parent)
	if err := db.rules.ValidateBlock(block, parent.block, target, view.seen, db.evHandler); err != nil {
		return Reorg{}, err
	}

	db.arrivals++
	n := node{
		hash:    hash,
		block:   block,
		work:    new(big.Int).Add(parent.work, Work(target)),
		arrival: db.arrivals,
	}

	for _, tx := range block.Values() {
		token := db.rules.Token(tx.SignedTx)
		n.tokens = append(n.tokens, token)
		db.tokens[token] = append(db.tokens[token], hash)
	}

	db.nodes[hash] = &n
	db.children[parent.hash] = append(db.children[parent.hash], hash)

	db.evHandler("database: Add: blk[%d]: hash[%s]: work[%s]", block.Header.Number, hash, n.work)

	return db.forkChoice(&n), nil
}

// forkChoice moves the best tip to n if its branch carries more work.
func (db *Database) forkChoice(n *node) Reorg {
	oldTip := db.best[len(db.best)-1]

	if n.work.Cmp(oldTip.work) <= 0 {
		return Reorg{OldTip: oldTip.block, NewTip: oldTip.block, Ancestor: oldTip.block}
	}

	ancestor := db.commonAncestor(oldTip, n)

	var detached []Block
	for _, nd := range db.best[ancestor.block.Header.Number+1:] {
		detached = append(detached, nd.block)
	}

	var attached []*node
	for nd := n; nd != ancestor; nd = db.nodes[nd.block.Header.PrevBlockHash] {
		attached = append(attached, nd)
	}

	best := db.best[:ancestor.block.Header.Number+1]
	attachedBlocks := make([]Block, 0, len(attached))
	for i := len(attached) - 1; i >= 0; i-- {
		best = append(best, attached[i])
		attachedBlocks = append(attachedBlocks, attached[i].block)
	}
	db.best = best

	if len(detached) > 0 {
		db.evHandler("database: forkChoice: REORG: ancestor[%d]: detached[%d]: attached[%d]", ancestor.block.Header.Number, len(detached), len(attachedBlocks))
	}

	return Reorg{
		OldTip:   oldTip.block,
		NewTip:   n.block,
		Ancestor: ancestor.block,
		Detached: detached,
		Attached: attachedBlocks,
	}
}

// commonAncestor finds the lowest block present in the ancestry of both
// nodes by walking the higher one down to the same height and then both
// together until they meet.
func (db *Database) commonAncestor(a *node, b *node) *node {
	for a.block.Header.Number > b.block.Header.Number {
		a = db.nodes[a.block.Header.PrevBlockHash]
	}

	for b.block.Header.Number > a.block.Header.Number {
		b = db.nodes[b.block.Header.PrevBlockHash]
	}

	for a != b {
		a = db.nodes[a.block.Header.PrevBlockHash]
		b = db.nodes[b.block.Header.PrevBlockHash]
	}

	return a
}

// CommonAncestor returns the lowest block shared by the ancestry of the two
// specified blocks.
func (db *Database) CommonAncestor(hashA string, hashB string) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	a, exists := db.nodes[hashA]
	if !exists {
		return Block{}, fmt.Errorf("block %s: %w", hashA, ErrNotFound)
	}

	b, exists := db.nodes[hashB]
	if !exists {
		return Block{}, fmt.Errorf("block %s: %w", hashB, ErrNotFound)
	}

	return db.commonAncestor(a, b).block, nil
}

// =============================================================================

// ValidateTransaction checks the transaction against the history of the
// best branch.
func (db *Database) ValidateTransaction(tx SignedTx) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.rules.ValidateTransaction(tx, db.seenOnBest)
}

// NextTarget returns the target a block extending the best tip must satisfy.
func (db *Database) NextTarget() (*big.Int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.nextTarget(db.best[len(db.best)-1])
}

// nextTarget asks the difficulty strategy for the target of a child of parent.
func (db *Database) nextTarget(parent *node) (*big.Int, error) {
	lookup := func(number uint64) (difficulty.Point, bool) {
		nd := db.ancestorAt(parent, number)
		if nd == nil {
			return difficulty.Point{}, false
		}
		return toPoint(nd), true
	}

	return db.difficulty.Next(toPoint(parent), lookup)
}

func toPoint(nd *node) difficulty.Point {
	return difficulty.Point{
		Number:    nd.block.Header.Number,
		TimeStamp: nd.block.Header.TimeStamp,
		Target:    nd.block.Header.TargetInt(),
	}
}

// onBest reports if the node is part of the best branch.
func (db *Database) onBest(nd *node) bool {
	number := nd.block.Header.Number
	return number < uint64(len(db.best)) && db.best[number] == nd
}

// ancestorAt returns the ancestor of nd at the specified height.
func (db *Database) ancestorAt(nd *node, number uint64) *node {
	if number > nd.block.Header.Number {
		return nil
	}

	for !db.onBest(nd) {
		if nd.block.Header.Number == number {
			return nd
		}
		nd = db.nodes[nd.block.Header.PrevBlockHash]
	}

	return db.best[number]
}

// seenOnBest reports if the token is confirmed on the best branch.
func (db *Database) seenOnBest(token string) bool {
	for _, hash := range db.tokens[token] {
		if nd, exists := db.nodes[hash]; exists && db.onBest(nd) {
			return true
		}
	}
	return false
}

// branchView answers ancestry questions for the branch ending at a node. The
// part of the branch that is not on the best branch is held in side.
type branchView struct {
	db         *Database
	side       map[string]bool
	forkNumber uint64
}

func (db *Database) viewOf(tip *node) branchView {
	view := branchView{
		db:   db,
		side: make(map[string]bool),
	}

	nd := tip
	for !db.onBest(nd) {
		view.side[nd.hash] = true
		nd = db.nodes[nd.block.Header.PrevBlockHash]
	}
	view.forkNumber = nd.block.Header.Number

	return view
}

// seen reports if the token is held by a block in the branch.
func (v branchView) seen(token string) bool {
	for _, hash := range v.db.tokens[token] {
		if v.side[hash] {
			return true
		}

		nd, exists := v.db.nodes[hash]
		if exists && nd.block.Header.Number <= v.forkNumber && v.db.onBest(nd) {
			return true
		}
	}
	return false
}

// =============================================================================

// BestTip returns the block at the end of the best branch.
func (db *Database) BestTip() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.best[len(db.best)-1].block
}

// BestWork returns the cumulative work of the best branch.
func (db *Database) BestWork() *big.Int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return new(big.Int).Set(db.best[len(db.best)-1].work)
}

// GetBranch returns the blocks of the best branch between the specified
// heights inclusive. The upper bound is clamped to the best tip.
func (db *Database) GetBranch(from uint64, to uint64) []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	last := uint64(len(db.best) - 1)
	if to > last {
		to = last
	}

	if from > to {
		return nil
	}

	blocks := make([]Block, 0, to-from+1)
	for _, nd := range db.best[from : to+1] {
		blocks = append(blocks, nd.block)
	}

	return blocks
}

// BlockByHash returns the block and its status for the specified hash.
func (db *Database) BlockByHash(hash string) (Block, Status, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	nd, exists := db.nodes[hash]
	if !exists {
		return Block{}, "", fmt.Errorf("block %s: %w", hash, ErrNotFound)
	}

	if db.onBest(nd) {
		return nd.block, StatusConfirmed, nil
	}

	return nd.block, StatusOrphaned, nil
}

// FindTransaction returns the confirmed transaction holding the token and
// the block it was confirmed in.
func (db *Database) FindTransaction(token string) (Block, BlockTx, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, hash := range db.tokens[token] {
		nd, exists := db.nodes[hash]
		if !exists || !db.onBest(nd) {
			continue
		}

		for _, tx := range nd.block.Values() {
			if db.rules.Token(tx.SignedTx) == token {
				return nd.block, tx, nil
			}
		}
	}

	return Block{}, BlockTx{}, fmt.Errorf("transaction %s: %w", token, ErrNotFound)
}

// Tips returns the end of every branch known to the database, best first and
// then by work descending.
func (db *Database) Tips() []Tip {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var tips []Tip
	for hash, nd := range db.nodes {
		if len(db.children[hash]) > 0 {
			continue
		}

		status := StatusOrphaned
		if db.onBest(nd) {
			status = StatusConfirmed
		}

		tips = append(tips, Tip{
			Hash:   hash,
			Number: nd.block.Header.Number,
			Work:   new(big.Int).Set(nd.work),
			Status: status,
		})
	}

	sort.Slice(tips, func(i, j int) bool {
		if tips[i].Status != tips[j].Status {
			return tips[i].Status == StatusConfirmed
		}
		if c := tips[i].Work.Cmp(tips[j].Work); c != 0 {
			return c > 0
		}
		return tips[i].Hash < tips[j].Hash
	})

	return tips
}

// Count returns the number of blocks held, genesis included.
func (db *Database) Count() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.nodes)
}

// =============================================================================

// Prune discards every branch whose common ancestor with the best branch is
// more than depth blocks below the best tip. A depth of zero disables
// pruning. It returns the number of blocks removed.
func (db *Database) Prune(depth uint64) int {
	if depth == 0 {
		return 0
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	bestNumber := uint64(len(db.best) - 1)
	if bestNumber <= depth {
		return 0
	}

	var removed int
	for _, nd := range db.best[:bestNumber-depth] {
		var keep []string
		for _, child := range db.children[nd.hash] {
			if db.onBest(db.nodes[child]) {
				keep = append(keep, child)
				continue
			}
			removed += db.removeSubtree(child)
		}
		db.children[nd.hash] = keep
	}

	if removed > 0 {
		db.evHandler("database: Prune: depth[%d]: removed[%d]", depth, removed)
	}

	return removed
}

// removeSubtree deletes the block and all of its descendants.
func (db *Database) removeSubtree(hash string) int {
	nd, exists := db.nodes[hash]
	if !exists {
		return 0
	}

	removed := 1
	for _, child := range db.children[hash] {
		removed += db.removeSubtree(child)
	}

	for _, token := range nd.tokens {
		hashes := db.tokens[token]
		for i := range hashes {
			if hashes[i] == hash {
				hashes = append(hashes[:i], hashes[i+1:]...)
				break
			}
		}

		if len(hashes) == 0 {
			delete(db.tokens, token)
			continue
		}
		db.tokens[token] = hashes
	}

	delete(db.children, hash)
	delete(db.nodes, hash)

	return removed
}
