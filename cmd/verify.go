package cmd

import (
	"fmt"

	"github.com/encodeous/batsim/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validates a topology and prints it in expanded form",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadTopology(topologyPath)
		if err != nil {
			return err
		}
		net, err := state.BuildTopology(cfg)
		if err != nil {
			return err
		}

		cfgYaml, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}

		fmt.Printf("Topology is valid: %d nodes, %d directed edges\n", len(net.Nodes), len(net.Edges))
		fmt.Println(string(cfgYaml))
		return nil
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
