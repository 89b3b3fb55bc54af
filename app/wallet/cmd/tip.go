package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// tipCmd represents the tip command.
var tipCmd = &cobra.Command{
	Use:   "tip",
	Short: "Print the latest block of the best branch",
	Run: func(cmd *cobra.Command, args []string) {
		var blk json.RawMessage
		if err := get("/v1/blocks/latest", &blk); err != nil {
			log.Fatal(err)
		}

		out, err := json.MarshalIndent(blk, "", "  ")
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(tipCmd)
}
