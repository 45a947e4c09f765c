package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync [peer-id]",
	Short: "Ask a peer for its chain, the first reachable peer when none is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := struct {
			PeerID string `json:"peer_id"`
		}{}
		if len(args) == 1 {
			req.PeerID = args[0]
		}

		var resp struct {
			Status string `json:"status"`
		}
		if err := send(http.MethodPost, "/v1/chain/sync", req, &resp); err != nil {
			return err
		}

		fmt.Println(resp.Status)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
