package database

import (
	"context"
	"math"
	"math/big"
	"time"

	"github.com/ebsnet/blockchain/foundation/blockchain/genesis"
	"github.com/ebsnet/blockchain/foundation/blockchain/merkle"
	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64      `json:"number"`          // Ethereum: Block number in the chain.
	PrevBlockHash string      `json:"prev_block_hash"` // Bitcoin: Hash of the previous block in the chain.
	TimeStamp     uint64      `json:"timestamp"`       // Bitcoin: Time the block was mined in unix milliseconds.
	Target        hexutil.Big `json:"target"`          // Bitcoin: Value the block hash must not exceed.
	Nonce         uint64      `json:"nonce"`           // Bitcoin: Value identified to solve the hash solution.
	TransRoot     string      `json:"trans_root"`      // Bitcoin/Ethereum: Represents the merkle tree root hash for the transactions in this block.
}

// TargetInt returns a copy of the target as a big integer.
func (bh BlockHeader) TargetInt() *big.Int {
	return new(big.Int).Set(bh.Target.ToInt())
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  *merkle.Tree[BlockTx]
}

// NewGenesisBlock constructs the block every chain starts from. It is fully
// determined by the genesis file so every node agrees on its hash.
func NewGenesisBlock(gen genesis.Genesis) (Block, error) {
	tree, err := merkle.NewTree[BlockTx](nil)
	if err != nil {
		return Block{}, err
	}

	block := Block{
		Header: BlockHeader{
			Number:        0,
			PrevBlockHash: signature.ZeroHash,
			TimeStamp:     uint64(gen.Date.UTC().UnixMilli()),
			Target:        hexutil.Big(*gen.TargetInt()),
			Nonce:         0,
			TransRoot:     tree.RootHex(),
		},
		Trans: tree,
	}

	return block, nil
}

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	PrevBlock Block
	Target    *big.Int
	Trans     []BlockTx
	EvHandler func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle.
func POW(ctx context.Context, args POWArgs) (Block, error) {

	// Construct a merkle tree from the transaction for this block. The root
	// of this tree will be part of the block to be mined.
	tree, err := merkle.NewTree(args.Trans)
	if err != nil {
		return Block{}, err
	}

	// A block can never be older than its parent.
	timeStamp := uint64(time.Now().UTC().UnixMilli())
	if timeStamp < args.PrevBlock.Header.TimeStamp {
		timeStamp = args.PrevBlock.Header.TimeStamp
	}

	// Construct the block to be mined.
	nb := Block{
		Header: BlockHeader{
			Number:        args.PrevBlock.Header.Number + 1,
			PrevBlockHash: args.PrevBlock.Hash(),
			TimeStamp:     timeStamp,
			Target:        hexutil.Big(*new(big.Int).Set(args.Target)),
			Nonce:         0, // Will be identified by the POW algorithm.
			TransRoot:     tree.RootHex(),
		},
		Trans: tree,
	}

	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	// Perform the proof of work mining operation.
	if err := nb.performPOW(ctx, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started")
	defer ev("database: PerformPOW: MINING: completed")

	// Log the transactions that are a part of this potential block.
	for _, tx := range b.Trans.Values() {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	target := b.Header.TargetInt()

	// Loop until we find a solution or the operation is cancelled.
	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did we get cancelled trying to solve the problem.
		if ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.Hash()
		if !SolvesTarget(hash, target) {
			if b.Header.Nonce == math.MaxUint64 {

				// The nonce space is exhausted for this timestamp.
				b.Header.TimeStamp++
				b.Header.Nonce = 0
				continue
			}
			b.Header.Nonce++
			continue
		}

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.Header.PrevBlockHash, hash)
		ev("database: PerformPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() string {

	// Hashing the block header and not the whole block so the blockchain can
	// be cryptographically checked by only needing block headers. The
	// transactions are covered through the merkle root in the header.
	return signature.Hash(b.Header)
}

// Values returns the transactions held by the block.
func (b Block) Values() []BlockTx {
	if b.Trans == nil {
		return nil
	}
	return b.Trans.Values()
}

// =============================================================================

// BlockData represents what can be serialized to disk and over the network.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []BlockTx   `json:"trans"`
}

// NewBlockData constructs block data from a block.
func NewBlockData(block Block) BlockData {
	blockData := BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Values(),
	}

	return blockData
}

// ToBlock converts a storage block into a database block.
func ToBlock(blockData BlockData) (Block, error) {
	tree, err := merkle.NewTree(blockData.Trans)
	if err != nil {
		return Block{}, err
	}

	block := Block{
		Header: blockData.Header,
		Trans:  tree,
	}

	return block, nil
}
