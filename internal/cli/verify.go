package cli

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cperrin88/idxsync/internal/logger"
	"github.com/cperrin88/idxsync/pkg/fsutil"
	"github.com/cperrin88/idxsync/pkg/index"
	"github.com/cperrin88/idxsync/pkg/model"
	"github.com/cperrin88/idxsync/pkg/patch"
	"github.com/cperrin88/idxsync/pkg/signing"
)

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	var (
		fingerprint string
		certPath    string
		output      string
		diff        bool
	)

	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Verify a signed index container",
		Long: `Verify the signature of an index container and parse its payload without
touching the database. With --output the verified payload is written to a file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp := signing.Expectation{Fingerprint: fingerprint}
			if certPath != "" {
				der, err := readCertificate(certPath)
				if err != nil {
					return err
				}
				exp.Certificate = der
			}
			return runVerify(cmd, args[0], exp, output, diff)
		},
	}

	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "SHA-256 fingerprint of the expected signer certificate")
	cmd.Flags().StringVar(&certPath, "certificate", "", "PEM file holding the expected signer certificate")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the verified payload to this file")
	cmd.Flags().BoolVar(&diff, "diff", false, "The payload is a diff index")
	cmd.MarkFlagsMutuallyExclusive("fingerprint", "certificate")

	return cmd
}

func runVerify(cmd *cobra.Command, path string, exp signing.Expectation, output string, diff bool) error {
	cfg, err := loadConfig()
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

	summary := &indexSummary{}
	verify := func(w io.Writer) error {
		_, err := cfg.Verifier().Verify(cmd.Context(), file, info.Size(), exp, func(r io.Reader) error {
			if w != nil {
				r = io.TeeReader(r, w)
			}
			if err := summary.parse(cmd.Context(), r, diff); err != nil {
				return err
			}
			// Trailing bytes after the document still belong to the payload
			_, err := io.Copy(io.Discard, r)
			return err
		})
		return err
	}

	if output != "" {
		err = fsutil.WriteFileAtomic(output, fsutil.FileModeDefault, verify)
	} else {
		err = verify(nil)
	}
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	logger.Debug("Container verified", logger.Fields{"path": path, "packages": summary.packages})
	summary.print(cmd.OutOrStdout())
	return nil
}

func readCertificate(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no PEM certificate found in %s", path)
	}
	return block.Bytes, nil
}

// indexSummary collects what verify reports about a payload.
type indexSummary struct {
	diff      bool
	address   string
	timestamp int64
	base      int64
	packages  int
	removed   int
}

func (s *indexSummary) parse(ctx context.Context, r io.Reader, diff bool) error {
	s.diff = diff
	if diff {
		return index.ParseDiff(ctx, r, s)
	}
	return index.ParseFull(ctx, r, s)
}

func (s *indexSummary) OnRepo(repo model.Repository) error {
	s.address, s.timestamp = repo.Address, repo.Timestamp
	return nil
}

func (s *indexSummary) OnPackage(string, model.Package) error {
	s.packages++
	return nil
}

func (s *indexSummary) OnDiffBase(timestamp int64) error {
	s.base = timestamp
	return nil
}

func (s *indexSummary) OnRepoDiff(timestamp int64, diff patch.Object) error {
	s.timestamp = timestamp
	if raw, ok := diff["address"]; ok {
		var address string
		if err := json.Unmarshal(raw, &address); err == nil {
			s.address = address
		}
	}
	return nil
}

func (s *indexSummary) OnPackageMetadataDiff(_ string, diff patch.Object) error {
	if diff == nil {
		s.removed++
		return nil
	}
	s.packages++
	return nil
}

func (s *indexSummary) OnVersionsDiff(string, map[string]patch.Object) error { return nil }

func (s *indexSummary) OnStreamEnded() error { return nil }

func (s *indexSummary) print(w io.Writer) {
	_, _ = successColor.Fprintln(w, "signature verified")
	tw := newTable(w)
	if s.address != "" {
		_, _ = fmt.Fprintf(tw, "address\t%s\n", s.address)
	}
	_, _ = fmt.Fprintf(tw, "timestamp\t%d\n", s.timestamp)
	if s.diff {
		_, _ = fmt.Fprintf(tw, "base\t%d\n", s.base)
		_, _ = fmt.Fprintf(tw, "changed packages\t%d\n", s.packages)
		_, _ = fmt.Fprintf(tw, "removed packages\t%d\n", s.removed)
	} else {
		_, _ = fmt.Fprintf(tw, "packages\t%d\n", s.packages)
	}
	_ = tw.Flush()
}
