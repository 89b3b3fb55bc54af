// Package private maintains the group of handlers for operator access.
package private

import (
	"context"
	"net/http"

	"github.com/ebsnet/blockchain/business/sys/metrics"
	v1 "github.com/ebsnet/blockchain/business/web/v1"
	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ebsnet/blockchain/foundation/blockchain/state"
	"github.com/ebsnet/blockchain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of private node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// ProposeBlock takes a block mined somewhere else, validates it and if that
// passes, adds the block to the local blockchain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	// Decode the JSON in the post call into a serialized block.
	var blockData database.BlockData
	if err := web.Decode(r, &blockData); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	// Convert the block data into a block. This action will create a merkle
	// tree for the set of transactions required for blockchain operations.
	block, err := database.ToBlock(blockData)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	// Ask the state package to validate the proposed block. If the block
	// passes validation, it will be added to the blockchain database.
	reorg, err := h.State.ProcessProposedBlock(block)
	if err != nil {
		return v1.NewChainError(err)
	}
	metrics.AddBlocks(ctx)

	h.Log.Infow("propose block", "traceid", web.GetTraceID(ctx), "hash", blockData.Hash, "number", block.Header.Number, "tip_changed", reorg.TipChanged(), "detached", len(reorg.Detached))

	resp := struct {
		Status     string `json:"status"`
		Hash       string `json:"hash"`
		TipChanged bool   `json:"tip_changed"`
		Detached   int    `json:"detached"`
		Attached   int    `json:"attached"`
	}{
		Status:     "accepted",
		Hash:       block.Hash(),
		TipChanged: reorg.TipChanged(),
		Detached:   len(reorg.Detached),
		Attached:   len(reorg.Attached),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status, err := h.State.QueryStatus()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// SignalMining asks the worker to start a mining operation.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.State.Worker.SignalStartMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ExportChain returns every accepted block in the canonical storage order.
func (h Handlers) ExportChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.ExportChain(), http.StatusOK)
}
