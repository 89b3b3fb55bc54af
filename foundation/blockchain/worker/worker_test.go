package worker_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ebsnet/blockchain/foundation/blockchain/genesis"
	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
	"github.com/ebsnet/blockchain/foundation/blockchain/state"
	"github.com/ebsnet/blockchain/foundation/blockchain/storage/memory"
	"github.com/ebsnet/blockchain/foundation/blockchain/worker"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_MineAndPersist(t *testing.T) {
	gen := genesis.Genesis{
		Date:          time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
		ChainID:       1,
		TransPerBlock: 2,
		Target:        hexutil.Big(*new(big.Int).Lsh(big.NewInt(1), 250)),
	}

	strg := memory.New()

	st, err := state.New(state.Config{
		Genesis: gen,
		Storage: strg,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %v", err)
	}

	w := worker.Run(st, time.Hour, nil)

	t.Log("Given the need to mine submitted transactions in the background.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen submitting more transactions than fit in a block.", testID)
		{
			pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the private key: %v", failed, testID, err)
			}

			for nonce := uint64(1); nonce <= 3; nonce++ {
				tx, err := database.NewTx(1, nonce, signature.PublicKey(pk), []byte("usage"))
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to construct the transaction: %v", failed, testID, err)
				}

				signedTx, err := tx.Sign(pk)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to sign the transaction: %v", failed, testID, err)
				}

				if _, err := st.SubmitTransaction(signedTx); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to submit the transaction: %v", failed, testID, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to submit the transactions.", success, testID)

			deadline := time.Now().Add(30 * time.Second)
			for st.QueryMempoolLength() > 0 || strg.Len() != int(st.RetrieveLatestBlock().Header.Number) {
				if time.Now().After(deadline) {
					t.Fatalf("\t%s\tTest %d:\tShould mine and store every transaction: pending[%d] stored[%d]", failed, testID, st.QueryMempoolLength(), strg.Len())
				}
				time.Sleep(10 * time.Millisecond)
			}
			t.Logf("\t%s\tTest %d:\tShould mine and store every transaction.", success, testID)

			var confirmed int
			for _, block := range st.QueryBlocksByNumber(1, state.QueryLatest) {
				if n := len(block.Values()); n == 0 || n > 2 {
					t.Fatalf("\t%s\tTest %d:\tShould have one or two transactions per block, got %d.", failed, testID, n)
				}
				confirmed += len(block.Values())
			}

			if confirmed != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould have three confirmed transactions, got %d.", failed, testID, confirmed)
			}
			t.Logf("\t%s\tTest %d:\tShould have three confirmed transactions.", success, testID)
		}
	}

	w.Shutdown()
}
