package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ebsnet/blockchain/app/services/node/handlers"
	"github.com/ebsnet/blockchain/business/core/billing"
	v1 "github.com/ebsnet/blockchain/business/web/v1"
	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ebsnet/blockchain/foundation/blockchain/genesis"
	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
	"github.com/ebsnet/blockchain/foundation/blockchain/state"
	"github.com/ebsnet/blockchain/foundation/blockchain/storage/memory"
	"github.com/ebsnet/blockchain/foundation/events"
	"github.com/ebsnet/blockchain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const pavelKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

type nopWorker struct{}

func (nopWorker) Shutdown()                         {}
func (nopWorker) SignalStartMining()                {}
func (nopWorker) SignalCancelMining() (done func()) { return func() {} }
func (nopWorker) SignalPersist()                    {}

func Test_PublicMux(t *testing.T) {
	st := newState(t)

	ns, err := nameservice.New("../../../../zblock/accounts")
	if err != nil {
		t.Fatalf("Should be able to load the name service: %v", err)
	}

	mux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		NS:       ns,
		Evts:     events.New(),
	})

	t.Log("Given the need to serve the public api.")
	{
		var token string

		testID := 0
		t.Logf("\tTest %d:\tWhen submitting a usage record.", testID)
		{
			w := call(mux, http.MethodPost, "/v1/tx/submit", signTx(t, 1, `{"kind":"usage","usage":42}`))
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 200 for the response : %v", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 200 for the response.", success, testID)

			var resp struct {
				Token   string `json:"token"`
				Pending int    `json:"pending"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Pending != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould have one pending transaction : %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould have one pending transaction.", success, testID)

			token = resp.Token
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen submitting a record the schema refuses.", testID)
		{
			w := call(mux, http.MethodPost, "/v1/tx/submit", signTx(t, 2, `{"kind":"refund"}`))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 400 for the response : %v", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 400 for the response.", success, testID)

			var er v1.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&er); err != nil || er.Kind != database.ErrMalformedPayload.Error() {
				t.Fatalf("\t%s\tTest %d:\tShould get a malformed payload kind, got %q : %v", failed, testID, er.Kind, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get a malformed payload kind.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen listing the mempool.", testID)
		{
			w := call(mux, http.MethodGet, "/v1/tx/uncommitted/list", nil)

			var trans []struct {
				FromName string `json:"from_name"`
			}
			if err := json.NewDecoder(w.Body).Decode(&trans); err != nil || len(trans) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould list one pending transaction : %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould list one pending transaction.", success, testID)

			if trans[0].FromName != "pavel" {
				t.Fatalf("\t%s\tTest %d:\tShould name the originator, got %q.", failed, testID, trans[0].FromName)
			}
			t.Logf("\t%s\tTest %d:\tShould name the originator.", success, testID)
		}

		testID = 3
		t.Logf("\tTest %d:\tWhen the transaction was mined.", testID)
		{
			if _, err := st.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine a block : %v", failed, testID, err)
			}

			w := call(mux, http.MethodGet, "/v1/tx/proof/"+token, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 200 for the proof : %v", failed, testID, w.Code)
			}

			var proof state.Proof
			if err := json.NewDecoder(w.Body).Decode(&proof); err != nil || proof.BlockNumber != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould get a proof for block 1 : %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get a proof for block 1.", success, testID)

			w = call(mux, http.MethodGet, "/v1/blocks/list/latest/latest", nil)

			var blocks []struct {
				Number uint64 `json:"number"`
				Hash   string `json:"hash"`
			}
			if err := json.NewDecoder(w.Body).Decode(&blocks); err != nil || len(blocks) != 1 || blocks[0].Number != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould list the latest block : %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould list the latest block.", success, testID)

			if blocks[0].Hash != proof.BlockHash {
				t.Fatalf("\t%s\tTest %d:\tShould have the proof name the latest block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have the proof name the latest block.", success, testID)
		}

		testID = 4
		t.Logf("\tTest %d:\tWhen asking for an unknown block.", testID)
		{
			w := call(mux, http.MethodGet, "/v1/blocks/hash/"+signature.ZeroHash, nil)
			if w.Code != http.StatusNotFound {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 404 for the response : %v", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 404 for the response.", success, testID)
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

func signTx(t *testing.T, nonce uint64, payload string) database.SignedTx {
	t.Helper()

	pk, err := crypto.HexToECDSA(pavelKey)
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

	return signedTx
}

func call(mux http.Handler, method string, path string, body any) *httptest.ResponseRecorder {
	var data []byte
	if body != nil {
		data, _ = json.Marshal(body)
	}

	r := httptest.NewRequest(method, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	return w
}
