// Package signing verifies and produces signed index containers.
//
// A container is a ZIP in signed-JAR layout: META-INF/MANIFEST.MF lists the
// payload digest, a signature file (*.SF) carries the manifest digest, and a
// PKCS#7 block (*.RSA or *.EC) signs the signature file. Exactly one payload
// entry and one signer are accepted.
package signing

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"path"
	"strings"

	pkgerrors "github.com/cperrin88/idxsync/pkg/errors"
	"github.com/klauspost/compress/zip"
	"github.com/mholt/archives"
	"go.mozilla.org/pkcs7"
)

const (
	// DefaultPayloadName is the entry holding the index document.
	DefaultPayloadName = "index-v2.json"
	// DefaultMaxEntrySize bounds the signature entries read into memory.
	DefaultMaxEntrySize = 1 << 20
)

// Expectation pins the signer. At most one of the fields may be set; with
// neither set the first signer is trusted and returned to the caller.
type Expectation struct {
	// Certificate is the DER encoded certificate the signer must match byte for byte.
	Certificate []byte
	// Fingerprint is the SHA-256 fingerprint of the signer certificate.
	Fingerprint string
}

func (e Expectation) check(cert *x509.Certificate) error {
	switch {
	case len(e.Certificate) > 0:
		if !bytes.Equal(e.Certificate, cert.Raw) {
			return ErrCertificateMismatch
		}
	case e.Fingerprint != "":
		if NormalizeFingerprint(e.Fingerprint) != Fingerprint(cert) {
			return fmt.Errorf("%w: got %s", ErrFingerprintMismatch, Fingerprint(cert))
		}
	}
	return nil
}

// Fingerprint returns the lowercase hex SHA-256 of the DER certificate.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// NormalizeFingerprint lowercases a fingerprint and drops colons and whitespace.
func NormalizeFingerprint(fp string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, strings.ToLower(fp))
}

// Verifier checks containers and streams their payload.
type Verifier struct {
	PayloadName  string
	MaxEntrySize int64
}

// NewVerifier returns a Verifier for the default payload name.
func NewVerifier() *Verifier {
	return &Verifier{PayloadName: DefaultPayloadName, MaxEntrySize: DefaultMaxEntrySize}
}

// signatureFiles holds the META-INF entries collected in the first pass.
type signatureFiles struct {
	manifest      []byte
	sigFile       []byte
	block         []byte
	blockName     string
	payloadCount  int
	manifestCount int
}

// Verify checks the container signature and then hands the payload to consume.
//
// The payload is hashed while consume reads it; when the stream reaches EOF with
// a digest other than the one in the manifest, Read returns ErrDigestMismatch
// instead of io.EOF. Whatever consume leaves unread is drained and checked after
// it returns. The signer certificate is returned on success.
func (v *Verifier) Verify(ctx context.Context, container io.ReaderAt, size int64, exp Expectation, consume func(io.Reader) error) (*x509.Certificate, error) {
	return v.VerifySigned(ctx, container, size, exp, func(_ *x509.Certificate, r io.Reader) error {
		return consume(r)
	})
}

// VerifySigned is Verify with the already verified signer certificate handed
// to consume together with the payload.
func (v *Verifier) VerifySigned(ctx context.Context, container io.ReaderAt, size int64, exp Expectation, consume func(*x509.Certificate, io.Reader) error) (*x509.Certificate, error) {
	if len(exp.Certificate) > 0 && exp.Fingerprint != "" {
		return nil, pkgerrors.New(pkgerrors.KindState, "verify", ErrConflictingExpectation)
	}

	files, err := v.collect(ctx, container, size)
	if err != nil {
		return nil, classify(err)
	}

	cert, entryDigest, want, err := v.checkSignature(files)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.KindSigning, "verify", err)
	}
	if err := exp.check(cert); err != nil {
		return nil, pkgerrors.New(pkgerrors.KindSigning, "verify", err)
	}

	var consumeErr error
	streamed := false
	err = archives.Zip{}.Extract(ctx, io.NewSectionReader(container, 0, size), func(ctx context.Context, f archives.FileInfo) error {
		if f.NameInArchive != v.payloadName() {
			return nil
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()

		dr := &digestReader{r: &contextReader{ctx: ctx, r: rc}, h: entryDigest.new(), want: want}
		if err := consume(cert, dr); err != nil {
			// A tampered payload is reported as such, whatever the consumer saw.
			if derr := dr.drain(); errors.Is(derr, ErrDigestMismatch) {
				return derr
			}
			consumeErr = err
			return err
		}
		if err := dr.drain(); err != nil {
			return err
		}
		streamed = true
		return nil
	})
	if consumeErr != nil {
		return nil, consumeErr
	}
	if err != nil {
		return nil, classify(err)
	}
	if !streamed {
		return nil, pkgerrors.New(pkgerrors.KindSigning, "verify", ErrPayloadMissing)
	}
	return cert, nil
}

func (v *Verifier) payloadName() string {
	if v.PayloadName == "" {
		return DefaultPayloadName
	}
	return v.PayloadName
}

func (v *Verifier) maxEntrySize() int64 {
	if v.MaxEntrySize <= 0 {
		return DefaultMaxEntrySize
	}
	return v.MaxEntrySize
}

// collect walks the container once, reading the signature entries and
// rejecting anything that is neither a signature entry nor the payload.
func (v *Verifier) collect(ctx context.Context, container io.ReaderAt, size int64) (*signatureFiles, error) {
	files := &signatureFiles{}
	err := archives.Zip{}.Extract(ctx, io.NewSectionReader(container, 0, size), func(ctx context.Context, f archives.FileInfo) error {
		name := strings.TrimSuffix(f.NameInArchive, "/")
		if f.IsDir() {
			if name == metaInfDir {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrUnexpectedEntry, f.NameInArchive)
		}

		switch {
		case name == v.payloadName():
			files.payloadCount++
			if files.payloadCount > 1 {
				return fmt.Errorf("%w: duplicate %s", ErrUnexpectedEntry, name)
			}
			return nil
		case name == manifestPath:
			files.manifestCount++
			if files.manifestCount > 1 {
				return fmt.Errorf("%w: duplicate %s", ErrUnexpectedEntry, name)
			}
			data, err := v.readEntry(f)
			files.manifest = data
			return err
		case path.Dir(name) != metaInfDir:
			return fmt.Errorf("%w: %s", ErrUnexpectedEntry, name)
		}

		switch strings.ToUpper(path.Ext(name)) {
		case ".SF":
			if files.sigFile != nil {
				return ErrMultipleSigners
			}
			data, err := v.readEntry(f)
			files.sigFile = data
			return err
		case ".RSA", ".EC", ".DSA":
			if files.block != nil {
				return ErrMultipleSigners
			}
			data, err := v.readEntry(f)
			files.block, files.blockName = data, name
			return err
		default:
			return fmt.Errorf("%w: %s", ErrUnexpectedEntry, name)
		}
	})
	if err != nil {
		return nil, err
	}

	if files.manifest == nil || files.sigFile == nil || files.block == nil {
		return nil, ErrNoSignature
	}
	if files.payloadCount == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPayloadMissing, v.payloadName())
	}
	return files, nil
}

func (v *Verifier) readEntry(f archives.FileInfo) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	limit := v.maxEntrySize()
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrEntryTooLarge, f.NameInArchive)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// checkSignature verifies the PKCS#7 block over the signature file, the
// signature file over the manifest, and returns the manifest digest of the payload.
func (v *Verifier) checkSignature(files *signatureFiles) (*x509.Certificate, digestSpec, []byte, error) {
	p7, err := pkcs7.Parse(files.block)
	if err != nil {
		return nil, digestSpec{}, nil, fmt.Errorf("%w: %s: %v", ErrBadSignature, files.blockName, err)
	}
	if len(p7.Signers) == 0 {
		return nil, digestSpec{}, nil, fmt.Errorf("%w: no signer info", ErrNoSignature)
	}
	if len(p7.Signers) > 1 {
		return nil, digestSpec{}, nil, ErrMultipleSigners
	}
	signer := p7.Signers[0]
	if err := checkAlgorithms(signer.DigestAlgorithm.Algorithm, signer.DigestEncryptionAlgorithm.Algorithm); err != nil {
		return nil, digestSpec{}, nil, err
	}

	p7.Content = files.sigFile
	if err := p7.Verify(); err != nil {
		return nil, digestSpec{}, nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	cert := p7.GetOnlySigner()
	if cert == nil {
		return nil, digestSpec{}, nil, ErrMultipleSigners
	}

	sf, err := parseManifest(files.sigFile)
	if err != nil {
		return nil, digestSpec{}, nil, err
	}
	mfDigest, mfSum, err := selectDigest(sf.main, digestSuffix+"-Manifest")
	if err != nil {
		return nil, digestSpec{}, nil, err
	}
	h := mfDigest.new()
	h.Write(files.manifest)
	if !bytes.Equal(h.Sum(nil), mfSum) {
		return nil, digestSpec{}, nil, fmt.Errorf("%w: manifest does not match signature file", ErrBadSignature)
	}

	mf, err := parseManifest(files.manifest)
	if err != nil {
		return nil, digestSpec{}, nil, err
	}
	entry, ok := mf.sections[v.payloadName()]
	if !ok {
		return nil, digestSpec{}, nil, fmt.Errorf("%w: %s not listed in manifest", ErrPayloadMissing, v.payloadName())
	}
	entryDigest, want, err := selectDigest(entry, digestSuffix)
	if err != nil {
		return nil, digestSpec{}, nil, err
	}
	return cert, entryDigest, want, nil
}

// classify maps container walk failures onto the sync error kinds.
func classify(err error) error {
	if pkgerrors.KindOf(err) != pkgerrors.KindUnknown {
		return err
	}
	for _, sentinel := range []error{
		ErrMalformedContainer, ErrNoSignature, ErrUnexpectedEntry, ErrPayloadMissing,
		ErrMultipleSigners, ErrUnsupportedDigest, ErrDigestMismatch, ErrEntryTooLarge,
	} {
		if errors.Is(err, sentinel) {
			return pkgerrors.New(pkgerrors.KindSigning, "verify", err)
		}
	}
	if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) || errors.Is(err, zip.ErrChecksum) {
		return pkgerrors.New(pkgerrors.KindSigning, "verify", fmt.Errorf("%w: %w", ErrMalformedContainer, err))
	}
	return pkgerrors.New(pkgerrors.KindIO, "verify", err)
}

// digestReader hashes everything read through it and checks the digest at EOF.
type digestReader struct {
	r    io.Reader
	h    hash.Hash
	want []byte
	err  error
}

func (d *digestReader) Read(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	n, err := d.r.Read(p)
	d.h.Write(p[:n])
	switch {
	case err == io.EOF:
		if !bytes.Equal(d.h.Sum(nil), d.want) {
			d.err = pkgerrors.New(pkgerrors.KindSigning, "verify", ErrDigestMismatch)
		} else {
			d.err = io.EOF
		}
		return n, d.err
	case err != nil:
		d.err = err
	}
	return n, err
}

// drain reads the rest of the payload so the digest is always checked.
func (d *digestReader) drain() error {
	if d.err == io.EOF {
		return nil
	}
	_, err := io.Copy(io.Discard, d)
	return err
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
