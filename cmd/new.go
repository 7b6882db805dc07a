package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/encodeous/batsim/state"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:       "new <sample>",
	Short:     "Write a sample topology",
	Long:      "Writes one of the built-in sample topologies to the topology path. Available: " + strings.Join(slices.Sorted(maps.Keys(state.SampleTopologies)), ", "),
	Args:      cobra.ExactArgs(1),
	ValidArgs: slices.Sorted(maps.Keys(state.SampleTopologies)),
	RunE: func(cmd *cobra.Command, args []string) error {
		sample, ok := state.SampleTopologies[args[0]]
		if !ok {
			return fmt.Errorf("unknown sample %q", args[0])
		}
		err := state.PathValidator(topologyPath)
		if err != nil {
			return err
		}
		cfg := sample()
		err = state.WriteTopology(topologyPath, &cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s topology to %s\n", args[0], topologyPath)
		return nil
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(newCmd)
}
