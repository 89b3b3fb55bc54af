package selector_test

import (
	"fmt"
	"testing"

	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ebsnet/blockchain/foundation/blockchain/mempool/selector"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Select(t *testing.T) {
	entry := func(seq int64, from string, nonce uint64) selector.Entry {
		tx := database.BlockTx{
			SignedTx: database.SignedTx{
				Tx: database.Tx{From: from, Nonce: nonce},
			},
		}
		return selector.Entry{Seq: seq, Token: fmt.Sprintf("%s:%d", from, nonce), Tx: tx}
	}

	entries := []selector.Entry{
		entry(1, "bill", 1),
		entry(2, "bill", 2),
		entry(3, "pavl", 1),
		entry(4, "bill", 3),
		entry(5, "edua", 1),
		entry(6, "pavl", 2),
	}

	type table struct {
		name     string
		strategy string
		howMany  int
		exp      []string
	}

	tt := []table{
		{name: "fifo-all", strategy: selector.StrategyFIFO, howMany: -1, exp: []string{"bill:1", "bill:2", "pavl:1", "bill:3", "edua:1", "pavl:2"}},
		{name: "fifo-some", strategy: selector.StrategyFIFO, howMany: 3, exp: []string{"bill:1", "bill:2", "pavl:1"}},
		{name: "fifo-more", strategy: selector.StrategyFIFO, howMany: 10, exp: []string{"bill:1", "bill:2", "pavl:1", "bill:3", "edua:1", "pavl:2"}},
		{name: "originator-all", strategy: selector.StrategyOriginator, howMany: -1, exp: []string{"bill:1", "pavl:1", "edua:1", "bill:2", "pavl:2", "bill:3"}},
		{name: "originator-some", strategy: selector.StrategyOriginator, howMany: 4, exp: []string{"bill:1", "pavl:1", "edua:1", "bill:2"}},
	}

	t.Log("Given the need to select transactions for the next block.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen using the %s strategy for %d transactions.", testID, tst.strategy, tst.howMany)
				{
					fn, err := selector.Retrieve(tst.strategy)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to retrieve the strategy: %v", failed, testID, err)
					}

					got := fn(entries, tst.howMany)
					if len(got) != len(tst.exp) {
						t.Fatalf("\t%s\tTest %d:\tShould get %d transactions, got %d.", failed, testID, len(tst.exp), len(got))
					}

					for i, tx := range got {
						key := fmt.Sprintf("%s:%d", tx.From, tx.Nonce)
						if key != tst.exp[i] {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, key)
							t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.exp[i])
							t.Fatalf("\t%s\tTest %d:\tShould get the transactions in order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get the transactions in order.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}

	if _, err := selector.Retrieve("tip"); err == nil {
		t.Fatalf("\t%s\tShould not find an unknown strategy.", failed)
	}
}
