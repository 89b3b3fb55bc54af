package cmd

import (
	"fmt"
	"log"

	"github.com/ebsnet/blockchain/business/core/billing"
	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

// addressCmd represents the address command.
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the public key and fingerprint for the wallet",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		publicKey := signature.PublicKey(privateKey)

		fingerprint, err := billing.Fingerprint(publicKey)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println("Public key: ", publicKey)
		fmt.Println("Fingerprint:", fingerprint)
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
}
