package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cperrin88/idxsync/internal/logger"
	"github.com/cperrin88/idxsync/pkg/fsutil"
	"github.com/cperrin88/idxsync/pkg/index"
	"github.com/cperrin88/idxsync/pkg/signing"
)

// NewIndexCmd creates the index command with subcommands for publishers.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Create index files",
		Long:  "Sign index documents and compute diffs between them",
	}

	cmd.AddCommand(
		newIndexSignCmd(),
		newIndexDiffCmd(),
	)

	return cmd
}

func newIndexSignCmd() *cobra.Command {
	var (
		certPath string
		keyPath  string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "sign PAYLOAD",
		Short: "Sign an index document",
		Long: `Wrap an index document in a signed container. The payload entry is named
after the payload_name setting.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexSign(cmd, args[0], certPath, keyPath, output)
		},
	}

	cmd.Flags().StringVar(&certPath, "cert", "", "PEM certificate of the signer")
	cmd.Flags().StringVar(&keyPath, "key", "", "PEM private key of the signer")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output container path")
	_ = cmd.MarkFlagRequired("cert")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func newIndexDiffCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compute a diff index",
		Long: `Compute the diff index that turns the OLD index document into the NEW one.
The result is written to --output, or to stdout.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexDiff(cmd, args[0], args[1], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runIndexSign(cmd *cobra.Command, payloadPath, certPath, keyPath, output string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return fmt.Errorf("failed to read certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to read private key: %w", err)
	}
	signer, err := signing.LoadSigner(certPEM, keyPEM)
	if err != nil {
		return err
	}

	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	err = fsutil.WriteFileAtomic(output, fsutil.FileModeDefault, func(w io.Writer) error {
		return signer.Sign(w, cfg.Settings.PayloadName, payload)
	})
	if err != nil {
		return fmt.Errorf("failed to write container: %w", err)
	}

	logger.Success("Index signed", logger.Fields{"output": output, "fingerprint": signing.Fingerprint(signer.Certificate)})
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), signing.Fingerprint(signer.Certificate))
	return nil
}

func runIndexDiff(cmd *cobra.Command, oldPath, newPath, output string) error {
	oldIndex, err := os.ReadFile(oldPath)
	if err != nil {
		return fmt.Errorf("failed to read old index: %w", err)
	}
	newIndex, err := os.ReadFile(newPath)
	if err != nil {
		return fmt.Errorf("failed to read new index: %w", err)
	}

	diff, err := index.CreateDiff(oldIndex, newIndex)
	if err != nil {
		return fmt.Errorf("failed to compute diff: %w", err)
	}

	if output == "" {
		_, err = cmd.OutOrStdout().Write(diff)
		return err
	}
	if err := fsutil.WriteBytesAtomic(output, fsutil.FileModeDefault, diff); err != nil {
		return fmt.Errorf("failed to write diff: %w", err)
	}
	logger.Success("Diff written", logger.Fields{"output": output})
	return nil
}
