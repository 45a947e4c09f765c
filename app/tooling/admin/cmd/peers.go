package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// peersCmd represents the peers command
var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Print the broadcast view of the node.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var peers []struct {
			Host    string   `json:"host"`
			NodeID  string   `json:"node_id"`
			Name    string   `json:"name"`
			Sources []string `json:"sources"`
		}
		if err := send(http.MethodGet, "/v1/peers/list", nil, &peers); err != nil {
			return err
		}

		if len(peers) == 0 {
			fmt.Println("No peers")
			return nil
		}

		for _, pr := range peers {
			fmt.Printf("Host: %-21s  Node: %-42s  Name: %-10s  Sources: %s\n", pr.Host, pr.NodeID, pr.Name, strings.Join(pr.Sources, ","))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(peersCmd)
}
