package cmd

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/spf13/cobra"
)

var keyFolder string

// keygenCmd represents the keygen command
var keygenCmd = &cobra.Command{
	Use:   "keygen <name>",
	Short: "Create the identity key for a node and print its node id.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := nameservice.LoadOrGenerateKey(keyFolder, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Name: %s  Node: %s\n", args[0], nameservice.NodeID(privateKey))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVarP(&keyFolder, "folder", "f", "zblock/nodes/", "Path to the directory with node keys.")
}
