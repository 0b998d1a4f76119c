package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cperrin88/idxsync/pkg/config"
	"github.com/cperrin88/idxsync/pkg/database"
)

// NewAppsCmd creates the apps command.
func NewAppsCmd() *cobra.Command {
	var compatibleOnly bool

	cmd := &cobra.Command{
		Use:   "apps REPO_ID [PACKAGE]",
		Short: "List synced apps",
		Long: `List the apps synced from a repository, or the versions of one package
when PACKAGE is given.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoID, err := parseRepoID(args[0])
			if err != nil {
				return err
			}
			return withDatabase(cmd.Context(), func(ctx context.Context, _ *config.Config, db *database.DB) error {
				if len(args) == 2 {
					return runVersions(ctx, cmd, db, repoID, args[1], compatibleOnly)
				}
				return runApps(ctx, cmd, db, repoID)
			})
		},
	}

	cmd.Flags().BoolVar(&compatibleOnly, "compatible", false, "Only show versions compatible with the configured device")

	return cmd
}

func runApps(ctx context.Context, cmd *cobra.Command, db *database.DB, repoID int64) error {
	if _, err := db.Repository(ctx, repoID); err != nil {
		return err
	}
	apps, err := db.Apps(ctx, repoID)
	if err != nil {
		return fmt.Errorf("failed to list apps: %w", err)
	}

	tw := newTable(cmd.OutOrStdout())
	_, _ = fmt.Fprintln(tw, "PACKAGE\tNAME\tUPDATED\tSUMMARY")
	for _, app := range apps {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			app.PackageName,
			displayName(app),
			formatTimestamp(app.LastUpdated),
			truncate(app.Summary.Best(DefaultLocale), MaxSummaryLength),
		)
	}
	return tw.Flush()
}

func runVersions(ctx context.Context, cmd *cobra.Command, db *database.DB, repoID int64, packageName string, compatibleOnly bool) error {
	versions, err := db.Versions(ctx, repoID, packageName)
	if err != nil {
		return fmt.Errorf("failed to list versions: %w", err)
	}

	tw := newTable(cmd.OutOrStdout())
	_, _ = fmt.Fprintln(tw, "CODE\tNAME\tADDED\tCOMPATIBLE\tFILE")
	for _, v := range versions {
		if compatibleOnly && !v.IsCompatible {
			continue
		}
		compatible := noticeColor.Sprint("no")
		if v.IsCompatible {
			compatible = successColor.Sprint("yes")
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			v.Manifest.VersionCode,
			orDash(v.Manifest.VersionName),
			formatTimestamp(v.Added),
			compatible,
			v.File.Name,
		)
	}
	return tw.Flush()
}

func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
