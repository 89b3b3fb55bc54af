package cmd

import (
	"fmt"
	"log"

	"github.com/ebsnet/blockchain/business/core/billing"
	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	kind    string
	usage   uint64
	user    string
	nonce   uint64
	chainID uint16
)

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign and submit a usage or billing record",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		var r billing.Record
		switch kind {
		case billing.KindUsage:
			r = billing.NewUsage(usage)

		case billing.KindBilling:
			fingerprint, err := billing.Fingerprint(user)
			if err != nil {
				log.Fatal(err)
			}
			r = billing.NewBilling(fingerprint)

		default:
			log.Fatalf("kind %q is not supported", kind)
		}

		if err := r.Validate(); err != nil {
			log.Fatal(err)
		}

		payload, err := r.Encode()
		if err != nil {
			log.Fatal(err)
		}

		tx, err := database.NewTx(chainID, nonce, signature.PublicKey(privateKey), payload)
		if err != nil {
			log.Fatal(err)
		}

		signedTx, err := tx.Sign(privateKey)
		if err != nil {
			log.Fatal(err)
		}

		var resp struct {
			Status  string `json:"status"`
			Token   string `json:"token"`
			Pending int    `json:"pending"`
		}
		if err := post("/v1/tx/submit", signedTx, &resp); err != nil {
			log.Fatal(err)
		}

		fmt.Printf("%s: token[%s] pending[%d]\n", resp.Status, resp.Token, resp.Pending)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&kind, "kind", "k", billing.KindUsage, "Record kind: usage or billing.")
	sendCmd.Flags().Uint64VarP(&usage, "usage", "v", 0, "Units consumed for a usage record.")
	sendCmd.Flags().StringVarP(&user, "user", "t", "", "Public key of the user being billed.")
	sendCmd.Flags().Uint64VarP(&nonce, "nonce", "n", 0, "Unique nonce for the transaction.")
	sendCmd.Flags().Uint16VarP(&chainID, "chain", "c", 1, "Chain id from the genesis file.")
	sendCmd.MarkFlagRequired("nonce")
}
