package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cperrin88/idxsync/internal/logger"
	"github.com/cperrin88/idxsync/pkg/fsutil"
	"github.com/cperrin88/idxsync/pkg/hooks"
)

// NewCompatCmd creates the compat command for compatibility scripts.
func NewCompatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compat",
		Short: "Manage the compatibility script",
		Long: `A compatibility script decides per version whether it can run on the
configured device. It is set with the compatibility_script setting.`,
	}

	cmd.AddCommand(newCompatTemplateCmd(), newCompatCheckCmd())

	return cmd
}

func newCompatTemplateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print a compatibility script template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), hooks.ScriptTemplate)
				return err
			}
			if _, err := os.Stat(output); err == nil {
				return fmt.Errorf("%s already exists", output)
			}
			if err := fsutil.WriteBytesAtomic(output, fsutil.FileModeDefault, []byte(hooks.ScriptTemplate)); err != nil {
				return fmt.Errorf("failed to write template: %w", err)
			}
			logger.Success("Template written", logger.Fields{"path": output})
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the template to this file instead of stdout")

	return cmd
}

func newCompatCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [SCRIPT]",
		Short: "Compile a compatibility script",
		Long:  "Compile SCRIPT, or the configured script, and report errors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := cfg.Settings.CompatibilityScript
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no compatibility script configured")
			}
			if _, err := hooks.LoadScriptChecker(path, cfg.Device()); err != nil {
				return err
			}
			_, _ = successColor.Fprintf(cmd.OutOrStdout(), "%s compiles\n", path)
			return nil
		},
	}
}
