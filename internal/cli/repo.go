package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cperrin88/idxsync/internal/logger"
	"github.com/cperrin88/idxsync/pkg/config"
	"github.com/cperrin88/idxsync/pkg/database"
	"github.com/cperrin88/idxsync/pkg/model"
)

// NewRepoCmd creates the repo command with subcommands.
func NewRepoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage repositories",
		Long:  "Register, list and remove repositories in the local database",
	}

	cmd.AddCommand(
		newRepoAddCmd(),
		newRepoRemoveCmd(),
		newRepoListCmd(),
	)

	return cmd
}

func newRepoAddCmd() *cobra.Command {
	var (
		name        string
		fingerprint string
	)

	cmd := &cobra.Command{
		Use:   "add ADDRESS",
		Short: "Register a repository",
		Long: `Register a repository by address. The repository stays empty until its
first full sync. With --fingerprint the signer of the first synced index must
match; the fingerprint is stored in the config file under --name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepoAdd(cmd, args[0], name, fingerprint)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name of the config entry (defaults to the address)")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "SHA-256 fingerprint of the expected signer certificate")

	return cmd
}

func newRepoRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove REPO_ID",
		Short: "Remove a repository",
		Long:  "Remove a repository and everything synced from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoID, err := parseRepoID(args[0])
			if err != nil {
				return err
			}
			return runRepoRemove(cmd, repoID)
		},
	}
}

func newRepoListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, _ *config.Config, db *database.DB) error {
				return runRepoList(ctx, cmd, db)
			})
		},
	}
}

func runRepoAdd(cmd *cobra.Command, address, name, fingerprint string) error {
	// The config file is written back, so overrides must not leak into it
	fileCfg, err := loadConfigFile()
	if err != nil {
		return err
	}
	if fingerprint != "" {
		if name == "" {
			name = address
		}
		if err := fileCfg.AddRepository(name, address, fingerprint); err != nil {
			return err
		}
		if err := fileCfg.Validate(); err != nil {
			return err
		}
	}

	var repoID int64
	err = withDatabase(cmd.Context(), func(ctx context.Context, _ *config.Config, db *database.DB) error {
		repoID, err = db.AddRepository(ctx, address)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to add repository: %w", err)
	}

	if fingerprint != "" {
		if err := fileCfg.SaveConfig(getConfigPath()); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
	}

	logger.Success("Repository added", logger.Fields{"repo_id": repoID, "address": address})
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), repoID)
	return nil
}

func runRepoRemove(cmd *cobra.Command, repoID int64) error {
	var address string
	err := withDatabase(cmd.Context(), func(ctx context.Context, _ *config.Config, db *database.DB) error {
		repo, err := db.Repository(ctx, repoID)
		if err != nil {
			return err
		}
		address = repo.Address
		return db.RemoveRepository(ctx, repoID)
	})
	if err != nil {
		return fmt.Errorf("failed to remove repository %d: %w", repoID, err)
	}

	fileCfg, err := loadConfigFile()
	if err != nil {
		return err
	}
	if entry := fileCfg.RepositoryByAddress(address); entry != nil {
		fileCfg.RemoveRepository(entry.Name)
		if err := fileCfg.SaveConfig(getConfigPath()); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
	}

	logger.Success("Repository removed", logger.Fields{"repo_id": repoID})
	return nil
}

func runRepoList(ctx context.Context, cmd *cobra.Command, db *database.DB) error {
	repos, err := db.Repositories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list repositories: %w", err)
	}

	tw := newTable(cmd.OutOrStdout())
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tADDRESS\tUPDATED\tFINGERPRINT")
	for _, repo := range repos {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			repo.RepoID,
			orDash(repo.Name.Best(DefaultLocale)),
			repo.Address,
			formatTimestamp(repo.Timestamp),
			faintColor.Sprint(certificateFingerprint(repo.Certificate)),
		)
	}
	return tw.Flush()
}

func parseRepoID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid repository id %q", arg)
	}
	return id, nil
}

// formatTimestamp renders an index timestamp in milliseconds, or "never" before the first sync.
func formatTimestamp(ms int64) string {
	if ms <= 0 {
		return "never"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// displayName picks the localized name of an app or falls back to its package name.
func displayName(app model.AppMetadata) string {
	if name := app.Name.Best(DefaultLocale); name != "" {
		return name
	}
	return app.PackageName
}
