package cmd

import (
	"context"
	"fmt"

	"github.com/encodeous/batsim/store"
	"github.com/spf13/cobra"
)

var historyDb = "batsim.db"

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs, or print the originator tables of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		db, err := store.Open(ctx, historyDb)
		if err != nil {
			return err
		}
		defer db.Close()

		if len(args) == 0 {
			runs, err := db.Runs(ctx)
			if err != nil {
				return err
			}
			for _, run := range runs {
				fmt.Printf("%s  %s  %s  seed=%d rounds=%d nodes=%d edges=%d\n",
					run.Id, run.Finished.Format("2006-01-02 15:04:05"), run.Topology, run.Seed, run.Rounds, run.Nodes, run.Edges)
			}
			return nil
		}

		routes, err := db.Routes(ctx, args[0])
		if err != nil {
			return err
		}
		if len(routes) == 0 {
			return fmt.Errorf("no routes recorded for run %s", args[0])
		}
		last := ""
		for _, r := range routes {
			if string(r.Node) != last {
				fmt.Printf("Node %s:\n", r.Node)
				last = string(r.Node)
			}
			fmt.Printf("    - %s via %s, throughput: %.4f, seqno: %d\n", r.Originator, r.NextHop, r.Throughput, r.LastSeenSeqno)
		}
		return nil
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyDb, "db", historyDb, "sqlite database written by run --db")
}
