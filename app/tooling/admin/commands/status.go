// Package commands contains the functionality for the admin tool.
package commands

import (
	"fmt"

	"github.com/ebsnet/blockchain/foundation/blockchain/state"
)

// Status prints the summary of the stored chain.
func Status(st *state.State) error {
	status, err := st.QueryStatus()
	if err != nil {
		return err
	}

	fmt.Printf("LatestBlockHash: %s\n", status.LatestBlockHash)
	fmt.Printf("LatestBlockNumber: %d\n", status.LatestBlockNumber)
	fmt.Printf("Work: %s  NextTarget: %s  Blocks: %d\n\n", status.Work, status.NextTarget, status.Blocks)

	for _, tip := range status.Tips {
		fmt.Printf("Tip: %s  Number: %d  Work: %s  Status: %s\n", tip.Hash, tip.Number, tip.Work, tip.Status)
	}

	return nil
}

// Blocks prints the headers of the best branch.
func Blocks(st *state.State) error {
	for _, block := range st.QueryBlocksByNumber(0, state.QueryLatest) {
		fmt.Printf("Number: %d  Hash: %s  Prev: %s  Trans: %d\n",
			block.Header.Number, block.Hash(), block.Header.PrevBlockHash, len(block.Values()))
	}

	return nil
}
