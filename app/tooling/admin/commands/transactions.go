package commands

import (
	"fmt"

	"github.com/ebsnet/blockchain/business/core/billing"
	"github.com/ebsnet/blockchain/foundation/blockchain/state"
)

// Transactions prints the records confirmed on the best branch, optionally
// only the ones signed by the specified public key.
func Transactions(args []string, st *state.State) error {
	var from string
	if len(args) == 3 {
		from = args[2]
	}

	for _, block := range st.QueryBlocksByNumber(0, state.QueryLatest) {
		for _, tx := range block.Values() {
			if from != "" && tx.From != from {
				continue
			}

			r, err := billing.Decode(tx.Payload)
			if err != nil {
				return fmt.Errorf("block %d: %w", block.Header.Number, err)
			}

			fmt.Printf("Block: %d  From: %s  Nonce: %d  Kind: %s  Usage: %d  Fingerprint: %s\n",
				block.Header.Number, tx.From, tx.Nonce, r.Kind, r.Usage, r.Fingerprint)
		}
	}

	return nil
}
