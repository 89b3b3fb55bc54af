// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ebsnet/blockchain/business/core/billing"
	"github.com/ebsnet/blockchain/business/sys/metrics"
	v1 "github.com/ebsnet/blockchain/business/web/v1"
	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ebsnet/blockchain/foundation/blockchain/state"
	"github.com/ebsnet/blockchain/foundation/events"
	"github.com/ebsnet/blockchain/foundation/nameservice"
	"github.com/ebsnet/blockchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide block events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	id, ch := h.Evts.Subscribe("viewer:")
	defer h.Evts.Release(id)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransaction adds a new signed transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var signedTx database.SignedTx
	if err := web.Decode(r, &signedTx); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit tran", "traceid", web.GetTraceID(ctx), "from:nonce", signedTx, "name", h.NS.Lookup(signedTx.From))

	pending, err := h.State.SubmitTransaction(signedTx)
	if err != nil {
		return v1.NewChainError(err)
	}
	metrics.AddTransactions(ctx)

	resp := submitted{
		Status:  "transaction added to mempool",
		Token:   h.State.Token(signedTx),
		Pending: pending,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions in selection order.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mempool := h.State.RetrieveMempool()

	trans := make([]tx, len(mempool))
	for i, tran := range mempool {
		trans[i] = toTx(h.NS, tran)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Proof returns the inclusion proof of a confirmed transaction.
func (h Handlers) Proof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	proof, err := h.State.QueryTransaction(web.Param(r, "token"))
	if err != nil {
		return v1.NewChainError(err)
	}

	return web.Respond(ctx, w, proof, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// LatestBlock returns the tip of the best branch.
func (h Handlers) LatestBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blk := h.State.RetrieveLatestBlock()
	return web.Respond(ctx, w, toBlock(h.NS, blk, database.StatusConfirmed), http.StatusOK)
}

// BlocksByNumber returns the best branch blocks between the from/to values.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := parseNumber(web.Param(r, "from"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	to, err := parseNumber(web.Param(r, "to"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	if from > to {
		return v1.NewRequestError(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blks := h.State.QueryBlocksByNumber(from, to)
	if len(blks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocks := make([]block, len(blks))
	for i, blk := range blks {
		blocks[i] = toBlock(h.NS, blk, database.StatusConfirmed)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// BlockByHash returns the block for the hash and if it's on the best branch.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blk, status, err := h.State.QueryBlockByHash(web.Param(r, "hash"))
	if err != nil {
		return v1.NewChainError(err)
	}

	return web.Respond(ctx, w, toBlock(h.NS, blk, status), http.StatusOK)
}

// BillingSince returns the best branch blocks recorded after the last
// billing of the user, as they are stored so a client can verify them.
func (h Handlers) BillingSince(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var bq billingQuery
	if err := web.Decode(r, &bq); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	branch := h.State.QueryBlocksByNumber(0, state.QueryLatest)

	blks, err := billing.SinceLastBilling(branch, bq.Provider, bq.Fingerprint)
	if err != nil {
		if errors.Is(err, billing.ErrNotInitialized) {
			return v1.NewRequestError(err, http.StatusNotFound)
		}
		return err
	}

	blockData := make([]database.BlockData, len(blks))
	for i, blk := range blks {
		blockData[i] = database.NewBlockData(blk)
	}

	return web.Respond(ctx, w, blockData, http.StatusOK)
}

// =============================================================================

// parseNumber converts a block number parameter. An empty value or
// latest selects the tip of the best branch.
func parseNumber(s string) (uint64, error) {
	if s == "" || s == "latest" {
		return state.QueryLatest, nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q", s)
	}

	return n, nil
}
