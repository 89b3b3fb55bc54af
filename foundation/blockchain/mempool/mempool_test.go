package mempool_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ebsnet/blockchain/foundation/blockchain/genesis"
	"github.com/ebsnet/blockchain/foundation/blockchain/mempool"
	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

var easy = new(big.Int).Lsh(big.NewInt(1), 252)

func Test_Submit(t *testing.T) {
	db := newDB(t)

	mp, err := mempool.New(db)
	if err != nil {
		t.Fatalf("Should be able to construct the mempool: %v", err)
	}

	t.Log("Given the need to hold pending transactions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen submitting transactions.", testID)
		{
			tx1, tx2 := signTx(t, 1, "a"), signTx(t, 2, "b")

			for _, tx := range []database.BlockTx{tx1, tx2} {
				if _, err := mp.Submit(tx); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to submit a transaction: %v", failed, testID, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to submit transactions.", success, testID)

			n, err := mp.Submit(tx1)
			if err != nil || n != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould ignore a repeated submission: %d %v", failed, testID, n, err)
			}
			t.Logf("\t%s\tTest %d:\tShould ignore a repeated submission.", success, testID)

			other := signTx(t, 1, "different")
			if _, err := mp.Submit(other); !errors.Is(err, database.ErrDuplicateToken) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a different transaction for a pending token: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a different transaction for a pending token.", success, testID)

			bad := signTx(t, 3, "c")
			bad.Payload = []byte("tampered")
			if _, err := mp.Submit(bad); !errors.Is(err, database.ErrInvalidSignature) || mp.Count() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould reject a bad signature without changing the pool: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a bad signature without changing the pool.", success, testID)

			cands := mp.SelectCandidates(1)
			if len(cands) != 1 || !cands[0].Equals(tx1) || mp.Count() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould select the oldest transaction without removing it.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould select the oldest transaction without removing it.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen a block confirms pending transactions.", testID)
		{
			block := mine(t, db.BestTip(), mp.SelectCandidates(-1)...)
			if _, err := db.Add(block); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to add the block: %v", failed, testID, err)
			}

			if n := mp.OnBlockConfirmed(block); n != 2 || mp.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould remove the confirmed transactions, removed %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould remove the confirmed transactions.", success, testID)

			if _, err := mp.Submit(signTx(t, 1, "a")); !errors.Is(err, database.ErrDuplicateToken) || mp.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould reject a confirmed token: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a confirmed token.", success, testID)
		}
	}
}

func Test_BranchReplaced(t *testing.T) {
	db := newDB(t)

	mp, err := mempool.New(db)
	if err != nil {
		t.Fatalf("Should be able to construct the mempool: %v", err)
	}

	t.Log("Given the need to reconcile the pool after a reorganization.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a heavier branch without a confirmed transaction wins.", testID)
		{
			gen := db.BestTip()
			txT, txS1, txS2, txP := signTx(t, 1, "t"), signTx(t, 2, "s1"), signTx(t, 3, "s2"), signTx(t, 4, "p")

			// Best branch confirms T.
			a1 := mine(t, gen, txT)
			if _, err := db.Add(a1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to add a1: %v", failed, testID, err)
			}

			if _, err := mp.Submit(txP); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to submit P: %v", failed, testID, err)
			}
			if _, err := mp.Submit(txS1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to submit S1: %v", failed, testID, err)
			}

			// The competing branch holds S1 and S2 but not T.
			b1 := mine(t, gen, txS1)
			if _, err := db.Add(b1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to add b1: %v", failed, testID, err)
			}

			b2 := mine(t, b1, txS2)
			reorg, err := db.Add(b2)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to add b2: %v", failed, testID, err)
			}

			if !reorg.TipChanged() || reorg.Extended() {
				t.Fatalf("\t%s\tTest %d:\tShould switch to the heavier branch.", failed, testID)
			}

			reinserted, removed := mp.OnBranchReplaced(reorg)
			if reinserted != 1 || removed != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould re-insert one and remove one, got %d and %d.", failed, testID, reinserted, removed)
			}
			t.Logf("\t%s\tTest %d:\tShould re-insert one and remove one.", success, testID)

			txs := mp.Copy()
			if len(txs) != 2 || !txs[0].Equals(txT) || !txs[1].Equals(txP) {
				t.Fatalf("\t%s\tTest %d:\tShould have T pending ahead of P.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have T pending ahead of P.", success, testID)

			if mp.Contains(db.Token(txS1.SignedTx)) {
				t.Fatalf("\t%s\tTest %d:\tShould not hold S1 once confirmed.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not hold S1 once confirmed.", success, testID)
		}
	}
}

// =============================================================================

func newDB(t *testing.T) *database.Database {
	t.Helper()

	gen := genesis.Genesis{
		Date:          time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
		ChainID:       1,
		TransPerBlock: 10,
		Target:        hexutil.Big(*new(big.Int).Set(easy)),
	}

	db, err := database.New(database.Config{
		Genesis:  gen,
		Verifier: signature.ECDSA{},
	})
	if err != nil {
		t.Fatalf("Should be able to construct the database: %v", err)
	}

	return db
}

func signTx(t *testing.T, nonce uint64, payload string) database.BlockTx {
	t.Helper()

	pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	if err != nil {
		t.Fatalf("Should be able to load the private key: %v", err)
	}

	tx, err := database.NewTx(1, nonce, signature.PublicKey(pk), []byte(payload))
	if err != nil {
		t.Fatalf("Should be able to construct the transaction: %v", err)
	}

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %v", err)
	}

	return database.NewBlockTx(signedTx)
}

func mine(t *testing.T, prev database.Block, trans ...database.BlockTx) database.Block {
	t.Helper()

	block, err := database.POW(context.Background(), database.POWArgs{PrevBlock: prev, Target: easy, Trans: trans})
	if err != nil {
		t.Fatalf("Should be able to mine a block: %v", err)
	}

	return block
}
