package cli

import (
	"crypto/x509"
	"encoding/hex"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/cperrin88/idxsync/pkg/repository"
	"github.com/cperrin88/idxsync/pkg/signing"
)

var (
	headerColor  = color.New(color.Bold)
	successColor = color.New(color.FgGreen)
	noticeColor  = color.New(color.FgYellow)
	faintColor   = color.New(color.Faint)
)

// setupColor disables colors when asked to, when NO_COLOR is set or when
// stdout is not a terminal.
func setupColor(disabled bool) {
	fd := os.Stdout.Fd()
	terminal := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	color.NoColor = disabled || os.Getenv("NO_COLOR") != "" || !terminal
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, TabWidth, ' ', 0)
}

func resultString(r repository.Result) string {
	if r == repository.ResultProcessed {
		return successColor.Sprint(r.String())
	}
	return noticeColor.Sprint(r.String())
}

// certificateFingerprint returns the fingerprint of a hex encoded DER
// certificate, or "-" when none is pinned.
func certificateFingerprint(certHex string) string {
	if certHex == "" {
		return "-"
	}
	der, err := hex.DecodeString(certHex)
	if err != nil {
		return "invalid"
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return "invalid"
	}
	return signing.Fingerprint(cert)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
