package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/spf13/cobra"
)

// mineCmd represents the mine command
var mineCmd = &cobra.Command{
	Use:   "mine <data>",
	Short: "Submit data to be mined into a new block.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := struct {
			Data string `json:"data"`
		}{
			Data: strings.Join(args, " "),
		}

		var entry mempool.Entry
		if err := send(http.MethodPost, "/v1/block/submit", req, &entry); err != nil {
			return err
		}

		fmt.Printf("Submitted: %s  Data: %s\n", entry.ID, entry.Data)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
}
