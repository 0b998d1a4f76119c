package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cperrin88/idxsync/internal/cli"
)

var (
	configPath string
	noColor    bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idxsync",
		Short: "Synchronize signed repository indexes",
		Long: `idxsync verifies signed repository index files and keeps a local
database of repositories, apps and versions in sync with them:
- sync: apply full or diff indexes in a single transaction
- verify: check a container signature without touching the database
- index: sign index documents and compute diffs for publishing`,
		SilenceUsage:      true,
		PersistentPreRunE: cli.Setup,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().String("database", "", "database file path (overrides database_path)")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides log_level)")
	cmd.PersistentFlags().String("log-format", "", "log format: text, json (overrides log_format)")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.NoColor = &noColor
	if err := cli.BindFlags(cmd); err != nil {
		panic(err)
	}

	cmd.AddCommand(
		cli.NewRepoCmd(),
		cli.NewSyncCmd(),
		cli.NewVerifyCmd(),
		cli.NewAppsCmd(),
		cli.NewIndexCmd(),
		cli.NewCompatCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
