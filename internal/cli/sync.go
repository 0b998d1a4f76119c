package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cperrin88/idxsync/internal/logger"
	"github.com/cperrin88/idxsync/pkg/config"
	"github.com/cperrin88/idxsync/pkg/database"
	pkgerrors "github.com/cperrin88/idxsync/pkg/errors"
	"github.com/cperrin88/idxsync/pkg/repository"
	"github.com/cperrin88/idxsync/pkg/signing"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	var (
		diff        bool
		fingerprint string
	)

	cmd := &cobra.Command{
		Use:   "sync REPO_ID FILE",
		Short: "Apply a signed index to a repository",
		Long: `Verify a signed index container and apply it to a registered repository.

A full index replaces the stored repository. With --diff the container holds a
diff against the stored index. The first sync pins the signer certificate; later
syncs must be signed by the same certificate. Before that, the signer is checked
against --fingerprint or the fingerprint configured for the repository address.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoID, err := parseRepoID(args[0])
			if err != nil {
				return err
			}
			mode := repository.ModeFull
			if diff {
				mode = repository.ModeDiff
			}
			return withDatabase(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				defer writeMetrics(cfg)
				return runSync(ctx, cmd, cfg, db, repoID, args[1], mode, fingerprint)
			})
		},
	}

	cmd.Flags().BoolVar(&diff, "diff", false, "The container holds a diff against the stored index")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "SHA-256 fingerprint of the expected signer certificate")

	return cmd
}

func runSync(ctx context.Context, cmd *cobra.Command, cfg *config.Config, db *database.DB, repoID int64, path string, mode repository.Mode, fingerprint string) error {
	stored, err := db.Repository(ctx, repoID)
	if err != nil {
		return err
	}
	if fingerprint == "" {
		if entry := cfg.RepositoryByAddress(stored.Address); entry != nil {
			fingerprint = entry.Fingerprint
		}
	}

	compat, err := compatibilityChecker(cfg)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open container: %w", err)
	}
	defer func() { _ = file.Close() }()
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat container: %w", err)
	}

	syncer := repository.NewSyncer(db,
		repository.WithVerifier(cfg.Verifier()),
		repository.WithCompatibility(compat),
	)
	logger.Debug("Starting sync", logger.Fields{"repo_id": repoID, "mode": mode.String(), "container": path})

	result, err := syncer.Sync(ctx, repository.Request{
		RepoID:      repoID,
		Mode:        mode,
		Container:   file,
		Size:        info.Size(),
		Expectation: signing.Expectation{Fingerprint: fingerprint},
	})
	if err != nil {
		if pkgerrors.IsRetryable(err) {
			return fmt.Errorf("sync failed, retrying may succeed: %w", err)
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "repository %d: %s\n", repoID, resultString(result))
	return nil
}
