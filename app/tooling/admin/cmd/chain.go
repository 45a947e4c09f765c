package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var chainJSON bool

// chainCmd represents the chain command
var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the chain held by the node.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var chain database.Chain
		if err := send(http.MethodGet, "/v1/chain/list", nil, &chain); err != nil {
			return err
		}

		if chainJSON {
			data, err := json.MarshalIndent(chain, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		for _, block := range chain {
			fmt.Printf("ID: %-4d  Hash: %s  Nonce: %-8d  Data: %s\n", block.ID, block.Hash, block.Nonce, block.Data)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(chainCmd)
	chainCmd.Flags().BoolVarP(&chainJSON, "json", "j", false, "Print the chain as json.")
}
