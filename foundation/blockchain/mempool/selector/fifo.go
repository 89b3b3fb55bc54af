package selector

import "github.com/ebsnet/blockchain/foundation/blockchain/database"

// fifoSelect returns the oldest transactions first.
var fifoSelect = func(entries []Entry, howMany int) []database.BlockTx {
	if howMany < 0 || howMany > len(entries) {
		howMany = len(entries)
	}

	final := make([]database.BlockTx, 0, howMany)
	for _, entry := range entries[:howMany] {
		final = append(final, entry.Tx)
	}

	return final
}
