package cmd

import (
	"fmt"
	"log"

	"github.com/ebsnet/blockchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

// generateCmd represents the generate command.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.GenerateKey()
		if err != nil {
			log.Fatal(err)
		}

		path := getPrivateKeyPath()
		if err := crypto.SaveECDSA(path, privateKey); err != nil {
			log.Fatal(err)
		}

		fmt.Println("Key saved to", path)
		fmt.Println("Public key:", signature.PublicKey(privateKey))
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
