package public

import (
	"github.com/ebsnet/blockchain/business/sys/validate"
	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ebsnet/blockchain/foundation/nameservice"
)

type tx struct {
	From      string `json:"from"`
	FromName  string `json:"from_name"`
	Nonce     uint64 `json:"nonce"`
	Payload   string `json:"payload"`
	TimeStamp uint64 `json:"timestamp"`
	Sig       string `json:"sig"`
}

type block struct {
	Hash          string `json:"hash"`
	Status        string `json:"status,omitempty"`
	Number        uint64 `json:"number"`
	PrevBlockHash string `json:"prev_block_hash"`
	TimeStamp     uint64 `json:"timestamp"`
	Target        string `json:"target"`
	Nonce         uint64 `json:"nonce"`
	TransRoot     string `json:"trans_root"`
	Trans         []tx   `json:"trans"`
}

type submitted struct {
	Status  string `json:"status"`
	Token   string `json:"token"`
	Pending int    `json:"pending"`
}

type billingQuery struct {
	Provider    string `json:"provider" validate:"required,len=68,hexadecimal"`
	Fingerprint string `json:"fingerprint" validate:"required,len=66,hexadecimal"`
}

// Validate checks the query is well formed.
func (bq billingQuery) Validate() error {
	return validate.Check(bq)
}

// =============================================================================

func toTx(ns *nameservice.NameService, tran database.BlockTx) tx {
	return tx{
		From:      tran.From,
		FromName:  ns.Lookup(tran.From),
		Nonce:     tran.Nonce,
		Payload:   string(tran.Payload),
		TimeStamp: tran.TimeStamp,
		Sig:       tran.Sig,
	}
}

func toBlock(ns *nameservice.NameService, blk database.Block, status database.Status) block {
	values := blk.Values()

	trans := make([]tx, len(values))
	for i, tran := range values {
		trans[i] = toTx(ns, tran)
	}

	return block{
		Hash:          blk.Hash(),
		Status:        string(status),
		Number:        blk.Header.Number,
		PrevBlockHash: blk.Header.PrevBlockHash,
		TimeStamp:     blk.Header.TimeStamp,
		Target:        blk.Header.Target.String(),
		Nonce:         blk.Header.Nonce,
		TransRoot:     blk.Header.TransRoot,
		Trans:         trans,
	}
}
