package selector

import "github.com/ebsnet/blockchain/foundation/blockchain/database"

// originatorSelect shares the block between originators so a single busy
// originator can't starve the others. Each originator's transactions stay
// in the order they arrived.
var originatorSelect = func(entries []Entry, howMany int) []database.BlockTx {

	/*
		Entries: 1:Bill 2:Bill 3:Pavl 4:Bill 5:Edua 6:Pavl
	*/

	// Group the transactions by originator, remembering the order the
	// originators were first seen in.
	var order []string
	m := make(map[string][]database.BlockTx)
	for _, entry := range entries {
		from := entry.Tx.From
		if _, exists := m[from]; !exists {
			order = append(order, from)
		}
		m[from] = append(m[from], entry.Tx)
	}

	/*
		Bill: 1, 2, 4
		Pavl: 3, 6
		Edua: 5
	*/

	// Pick the first transaction in the slice for each originator. Each
	// iteration represents a new row of selections. Keep doing that until
	// all the transactions have been selected.
	var rows [][]database.BlockTx
	for {
		var row []database.BlockTx
		for _, from := range order {
			if len(m[from]) > 0 {
				row = append(row, m[from][0])
				m[from] = m[from][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	/*
		0: Bill:1 Pavl:3 Edua:5
		1: Bill:2 Pavl:6
		2: Bill:4
	*/

	if howMany < 0 || howMany > len(entries) {
		howMany = len(entries)
	}

	final := make([]database.BlockTx, 0, howMany)
done:
	for _, row := range rows {
		for _, tx := range row {
			if len(final) == howMany {
				break done
			}
			final = append(final, tx)
		}
	}

	return final
}
