// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/ebsnet/blockchain/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFIFO       = "fifo"
	StrategyOriginator = "originator"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO:       fifoSelect,
	StrategyOriginator: originatorSelect,
}

// Entry is a pending transaction with its position in the pool. Lower
// sequence numbers arrived earlier.
type Entry struct {
	Seq   int64
	Token string
	Tx    database.BlockTx
}

// Func defines a function that takes the pending transactions ordered by
// sequence and selects howMany of them in an order based on the function's
// strategy. Receiving -1 for howMany must return all the transactions in the
// strategy's ordering. A selector never reorders the transactions of a
// single originator.
type Func func(entries []Entry, howMany int) []database.BlockTx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}
