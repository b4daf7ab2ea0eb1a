package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/vertex-graph/pkg/config"
	"github.com/ritzau/vertex-graph/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "vertex-graph",
	Short: "Interactive graph of workspaces and vertices",
	Long: "vertex-graph serves a force-directed view of the workspaces and vertices in a data\n" +
		"directory. Without a subcommand it runs serve.",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("data", ".", "Data directory holding ws-*.json and vert-*.json records")
	f.String("state", "", "Directory for persisted view state (empty keeps it in memory)")
	f.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	f.CountP("verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	f.String("log-format", "text", "Log format: text or json")

	addServeFlags(rootCmd)
	addServeFlags(serveCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(summaryCmd)
}

// loadConfig resolves the configuration of a command and sets up logging from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		return nil, err
	}
	if cfg.LogFormat == "json" {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
