package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/ebsnet/blockchain/business/core/billing"
	"github.com/ebsnet/blockchain/foundation/blockchain/database"
	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	provider string
	customer string
)

// billingCmd represents the billing command.
var billingCmd = &cobra.Command{
	Use:   "billing",
	Short: "Print the invoice for the usage recorded since the last billing",
	Run: func(cmd *cobra.Command, args []string) {

		// Without a customer the wallet bills itself.
		if customer == "" {
			privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
			if err != nil {
				log.Fatal(err)
			}
			customer = signature.PublicKey(privateKey)
		}

		fingerprint, err := billing.Fingerprint(customer)
		if err != nil {
			log.Fatal(err)
		}

		query := struct {
			Provider    string `json:"provider"`
			Fingerprint string `json:"fingerprint"`
		}{
			Provider:    provider,
			Fingerprint: fingerprint,
		}

		var blockData []database.BlockData
		if err := post("/v1/billing/since", query, &blockData); err != nil {
			log.Fatal(err)
		}

		blocks := make([]database.Block, len(blockData))
		for i, bd := range blockData {
			block, err := database.ToBlock(bd)
			if err != nil {
				log.Fatal(err)
			}

			if block.Hash() != bd.Hash {
				log.Fatalf("block %d does not match its hash", bd.Header.Number)
			}

			blocks[i] = block
		}

		inv, err := billing.NewInvoice(blocks, customer)
		if err != nil {
			log.Fatal(err)
		}

		out, err := json.MarshalIndent(inv, "", "  ")
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(billingCmd)
	billingCmd.Flags().StringVarP(&provider, "provider", "r", "", "Public key of the provider signing billing records.")
	billingCmd.Flags().StringVarP(&customer, "user", "t", "", "Public key of the billed user, defaults to the wallet key.")
	billingCmd.MarkFlagRequired("provider")
}
