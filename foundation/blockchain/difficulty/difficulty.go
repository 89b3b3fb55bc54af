// Package difficulty provides the strategies used to decide the difficulty
// target a block must satisfy.
package difficulty

import (
	"fmt"
	"math/big"

	"github.com/ebsnet/blockchain/foundation/blockchain/genesis"
)

// MaxTarget is the easiest possible target, every hash satisfies it.
var MaxTarget = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// List of different difficulty strategies.
const (
	StrategyFixed    = genesis.DifficultyFixed
	StrategyRetarget = genesis.DifficultyRetarget
)

// Map of different difficulty strategies with their constructors.
var strategies = map[string]func(gen genesis.Genesis) Strategy{
	StrategyFixed:    newFixed,
	StrategyRetarget: newRetarget,
}

// Point is what a strategy needs to know about a single block.
type Point struct {
	Number    uint64
	TimeStamp uint64 // Unix milliseconds.
	Target    *big.Int
}

// Lookup returns the point for the block at the specified height on the
// branch being extended.
type Lookup func(number uint64) (Point, bool)

// Strategy calculates the target for the block that extends parent.
type Strategy interface {
	Next(parent Point, lookup Lookup) (*big.Int, error)
}

// Retrieve returns the strategy configured by the genesis file. An empty
// strategy name selects the fixed strategy.
func Retrieve(gen genesis.Genesis) (Strategy, error) {
	name := gen.Difficulty.Strategy
	if name == "" {
		name = StrategyFixed
	}

	fn, exists := strategies[name]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", name)
	}

	return fn(gen), nil
}

// =============================================================================

// Fixed keeps the genesis target for every block.
type Fixed struct {
	Target *big.Int
}

func newFixed(gen genesis.Genesis) Strategy {
	return Fixed{Target: gen.TargetInt()}
}

// Next implements the Strategy interface.
func (f Fixed) Next(parent Point, lookup Lookup) (*big.Int, error) {
	return new(big.Int).Set(f.Target), nil
}

// =============================================================================

// Retarget recomputes the target every EpochBlocks blocks from the time it
// took to produce the last epoch versus the desired interval. A single
// adjustment never moves the target by more than ClampFactor in either
// direction.
type Retarget struct {
	EpochBlocks   uint64
	BlockInterval uint64
	ClampFactor   uint64
}

func newRetarget(gen genesis.Genesis) Strategy {
	return Retarget{
		EpochBlocks:   gen.Difficulty.EpochBlocks,
		BlockInterval: gen.Difficulty.BlockInterval,
		ClampFactor:   gen.Difficulty.ClampFactor,
	}
}

// Next implements the Strategy interface.
func (r Retarget) Next(parent Point, lookup Lookup) (*big.Int, error) {
	height := parent.Number + 1
	if height < r.EpochBlocks || height%r.EpochBlocks != 0 {
		return new(big.Int).Set(parent.Target), nil
	}

	// The epoch is measured from the block before its first block. The first
	// epoch has no such block and is measured from genesis.
	var anchor uint64
	if height > r.EpochBlocks {
		anchor = height - r.EpochBlocks - 1
	}

	first, ok := lookup(anchor)
	if !ok {
		return nil, fmt.Errorf("missing block %d for retarget", anchor)
	}

	var actual uint64 = 1
	if parent.TimeStamp > first.TimeStamp {
		actual = parent.TimeStamp - first.TimeStamp
	}
	expected := (parent.Number - anchor) * r.BlockInterval

	// A slow epoch raises the target which makes the next epoch easier.
	next := new(big.Int).Mul(parent.Target, new(big.Int).SetUint64(actual))
	next.Div(next, new(big.Int).SetUint64(expected))

	clamp := new(big.Int).SetUint64(r.ClampFactor)

	upper := new(big.Int).Mul(parent.Target, clamp)
	if next.Cmp(upper) > 0 {
		next.Set(upper)
	}

	lower := new(big.Int).Div(parent.Target, clamp)
	if next.Cmp(lower) < 0 {
		next.Set(lower)
	}

	switch {
	case next.Cmp(MaxTarget) > 0:
		next.Set(MaxTarget)
	case next.Sign() <= 0:
		next.SetInt64(1)
	}

	return next, nil
}
