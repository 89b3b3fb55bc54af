// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Difficulty strategy names understood by the genesis file.
const (
	DifficultyFixed    = "fixed"
	DifficultyRetarget = "retarget"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time   `json:"date"`
	ChainID       uint16      `json:"chain_id"`        // The chain id represents an unique id for this running instance.
	TransPerBlock uint16      `json:"trans_per_block"` // The maximum number of transactions that can be in a block.
	Target        hexutil.Big `json:"target"`          // Difficulty target in force for the first block.
	Difficulty    Difficulty  `json:"difficulty"`
}

// Difficulty describes how the target changes as the chain grows.
type Difficulty struct {
	Strategy      string `json:"strategy"`       // fixed or retarget.
	EpochBlocks   uint64 `json:"epoch_blocks"`   // Number of blocks between retargets.
	BlockInterval uint64 `json:"block_interval"` // Desired time between blocks in milliseconds.
	ClampFactor   uint64 `json:"clamp_factor"`   // Largest change allowed per retarget.
}

// TargetInt returns a copy of the genesis target.
func (g Genesis) TargetInt() *big.Int {
	return new(big.Int).Set(g.Target.ToInt())
}

// Validate checks the genesis values can be used to build a chain.
func (g Genesis) Validate() error {
	if g.ChainID == 0 {
		return errors.New("chain_id must be set")
	}

	if g.TransPerBlock == 0 {
		return errors.New("trans_per_block must be greater than zero")
	}

	if g.Target.ToInt().Sign() <= 0 {
		return errors.New("target must be greater than zero")
	}

	switch g.Difficulty.Strategy {
	case "", DifficultyFixed:
	case DifficultyRetarget:
		if g.Difficulty.EpochBlocks < 2 {
			return errors.New("difficulty epoch_blocks must be at least 2")
		}
		if g.Difficulty.BlockInterval == 0 {
			return errors.New("difficulty block_interval must be greater than zero")
		}
		if g.Difficulty.ClampFactor < 1 {
			return errors.New("difficulty clamp_factor must be at least 1")
		}
	default:
		return fmt.Errorf("difficulty strategy %q is not supported", g.Difficulty.Strategy)
	}

	return nil
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("validating genesis: %w", err)
	}

	return genesis, nil
}
