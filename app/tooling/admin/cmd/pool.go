package cmd

import (
	"fmt"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/spf13/cobra"
)

// poolCmd represents the pool command
var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Print the data waiting to be mined.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var entries []mempool.Entry
		if err := send(http.MethodGet, "/v1/pool/list", nil, &entries); err != nil {
			return err
		}

		for _, entry := range entries {
			fmt.Printf("ID: %s  Submitted: %s  Data: %s\n", entry.ID, entry.Submitted.Format("2006-01-02 15:04:05"), entry.Data)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(poolCmd)
}
