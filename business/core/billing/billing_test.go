package billing_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ebsnet/blockchain/business/core/billing"
	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ebsnet/blockchain/foundation/blockchain/genesis"
	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
	"github.com/ebsnet/blockchain/foundation/blockchain/state"
	"github.com/ebsnet/blockchain/foundation/blockchain/storage/memory"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	providerKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	userKey     = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
)

type nopWorker struct{}

func (nopWorker) Shutdown()                         {}
func (nopWorker) SignalStartMining()                {}
func (nopWorker) SignalCancelMining() (done func()) { return func() {} }
func (nopWorker) SignalPersist()                    {}

func Test_ValidatePayload(t *testing.T) {
	user := publicKey(t, userKey)
	fp, err := billing.Fingerprint(user)
	if err != nil {
		t.Fatalf("Should be able to fingerprint the user: %v", err)
	}

	type table struct {
		name    string
		payload string
		valid   bool
	}

	tt := []table{
		{name: "usage", payload: `{"kind":"usage","usage":12}`, valid: true},
		{name: "billing", payload: `{"kind":"billing","fingerprint":"` + fp + `"}`, valid: true},
		{name: "unknown kind", payload: `{"kind":"refund","usage":12}`, valid: false},
		{name: "zero usage", payload: `{"kind":"usage"}`, valid: false},
		{name: "missing fingerprint", payload: `{"kind":"billing"}`, valid: false},
		{name: "short fingerprint", payload: `{"kind":"billing","fingerprint":"0x1234"}`, valid: false},
		{name: "usage with fingerprint", payload: `{"kind":"usage","usage":1,"fingerprint":"` + fp + `"}`, valid: false},
		{name: "unknown field", payload: `{"kind":"usage","usage":1,"extra":true}`, valid: false},
		{name: "not json", payload: `usage`, valid: false},
	}

	t.Log("Given the need to validate billing payloads.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling a %s payload.", testID, tst.name)
				{
					err := billing.Schema{}.ValidatePayload([]byte(tst.payload))
					if (err == nil) != tst.valid {
						t.Fatalf("\t%s\tTest %d:\tShould get valid=%v: %v", failed, testID, tst.valid, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get valid=%v.", success, testID, tst.valid)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_SinceLastBilling(t *testing.T) {
	provider := publicKey(t, providerKey)
	user := publicKey(t, userKey)

	fp, err := billing.Fingerprint(user)
	if err != nil {
		t.Fatalf("Should be able to fingerprint the user: %v", err)
	}

	st := newState(t)

	t.Log("Given the need to bill usage recorded since the last invoice.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the user was never billed.", testID)
		{
			submitAndMine(t, st, userKey, 1, billing.NewUsage(5))

			_, err := billing.SinceLastBilling(st.QueryBlocksByNumber(0, state.QueryLatest), provider, fp)
			if !errors.Is(err, billing.ErrNotInitialized) {
				t.Fatalf("\t%s\tTest %d:\tShould get a not initialized error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get a not initialized error.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen usage follows a billing record.", testID)
		{
			submitAndMine(t, st, providerKey, 1, billing.NewBilling(fp))
			submitAndMine(t, st, userKey, 2, billing.NewUsage(7))
			submitAndMine(t, st, userKey, 3, billing.NewUsage(8))

			blocks, err := billing.SinceLastBilling(st.QueryBlocksByNumber(0, state.QueryLatest), provider, fp)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould find the billing record: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould find the billing record.", success, testID)

			if len(blocks) != 2 || blocks[0].Header.Number != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould get the two blocks after billing, got %d.", failed, testID, len(blocks))
			}
			t.Logf("\t%s\tTest %d:\tShould get the two blocks after billing.", success, testID)

			inv, err := billing.NewInvoice(blocks, user)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build the invoice: %v", failed, testID, err)
			}

			if len(inv.Positions) != 2 || inv.Total != 15 || inv.Fingerprint != fp {
				t.Fatalf("\t%s\tTest %d:\tShould invoice 15 units over 2 positions, got %d over %d.", failed, testID, inv.Total, len(inv.Positions))
			}
			t.Logf("\t%s\tTest %d:\tShould invoice 15 units over 2 positions.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen a billing record is signed by someone else.", testID)
		{
			blocks, err := billing.SinceLastBilling(st.QueryBlocksByNumber(0, state.QueryLatest), user, fp)
			if !errors.Is(err, billing.ErrNotInitialized) || blocks != nil {
				t.Fatalf("\t%s\tTest %d:\tShould ignore records from other signers: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould ignore records from other signers.", success, testID)
		}
	}
}

// =============================================================================

func newState(t *testing.T) *state.State {
	t.Helper()

	target := new(big.Int).Lsh(big.NewInt(1), 248)

	st, err := state.New(state.Config{
		Genesis: genesis.Genesis{
			Date:          time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
			ChainID:       1,
			TransPerBlock: 10,
			Target:        hexutil.Big(*target),
		},
		Storage: memory.New(),
		Schema:  billing.Schema{},
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %v", err)
	}
	st.Worker = nopWorker{}

	return st
}

func publicKey(t *testing.T, key string) string {
	t.Helper()

	pk, err := crypto.HexToECDSA(key)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %v", err)
	}

	return signature.PublicKey(pk)
}

func submitAndMine(t *testing.T, st *state.State, key string, nonce uint64, r billing.Record) {
	t.Helper()

	pk, err := crypto.HexToECDSA(key)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %v", err)
	}

	payload, err := r.Encode()
	if err != nil {
		t.Fatalf("Should be able to encode the record: %v", err)
	}

	tx, err := database.NewTx(1, nonce, signature.PublicKey(pk), payload)
	if err != nil {
		t.Fatalf("Should be able to construct the transaction: %v", err)
	}

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %v", err)
	}

	if _, err := st.SubmitTransaction(signedTx); err != nil {
		t.Fatalf("Should be able to submit the transaction: %v", err)
	}

	if _, err := st.MineNewBlock(context.Background()); err != nil {
		t.Fatalf("Should be able to mine the block: %v", err)
	}
}
