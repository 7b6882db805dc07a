package cmd

import (
	"fmt"

	"github.com/encodeous/batsim/core"
	"github.com/encodeous/batsim/state"
	"github.com/spf13/cobra"
)

var inspectFlag = &runFlags{}
var inspectCmd = &cobra.Command{
	Use:     "inspect <node>",
	Aliases: []string{"i"},
	Short:   "Run a simulation and print the originator table of a single node",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := inspectFlag.simulate(cmd)
		if err != nil {
			return err
		}
		table, err := s.OriginatorTable(state.NodeId(args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("Node %s:\n%s\n", args[0], core.FormatTable(table))
		return nil
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectFlag.register(inspectCmd)
}
