package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var topologyPath = "topology.yaml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "batsim",
	Short: "OGM flooding mesh routing simulator",
	Long: `batsim simulates a BATMAN-style proactive mesh routing protocol.
Every node periodically floods Originator Messages; neighbours relay them while discounting a throughput metric, and every node learns the best next hop towards every originator.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		err := loadDotEnv()
		if err != nil {
			return err
		}
		if env := os.Getenv("BATSIM_TOPOLOGY"); env != "" && !cmd.Flags().Changed("topology") {
			topologyPath = env
		}
		return nil
	},
}

// loadDotEnv reads BATSIM_* settings from a .env file in the working directory, if there is one.
// Variables already set in the environment win.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cfg",
		Title: "Topology",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "sim",
		Title: "Simulation",
	})
	rootCmd.PersistentFlags().StringVarP(&topologyPath, "topology", "t", topologyPath, "topology description")
}
