package signing

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
	"go.mozilla.org/pkcs7"
)

const createdBy = "idxsync"

// Signer produces signed containers around a single payload.
type Signer struct {
	Certificate *x509.Certificate
	Key         crypto.PrivateKey
	// Now stamps the zip entries; time.Now when nil.
	Now func() time.Time

	// manifestDigest and blockDigest default to SHA-256.
	manifestDigest digestSpec
	blockDigest    asn1.ObjectIdentifier
}

// NewSigner returns a Signer using SHA-256 throughout.
func NewSigner(cert *x509.Certificate, key crypto.PrivateKey) *Signer {
	return &Signer{Certificate: cert, Key: key}
}

// LoadSigner parses a PEM certificate and a PEM private key (PKCS#8, PKCS#1 or SEC 1).
func LoadSigner(certPEM, keyPEM []byte) (*Signer, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, fmt.Errorf("no PEM certificate found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	block, _ = pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("no PEM private key found")
	}
	var key crypto.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return NewSigner(cert, key), nil
}

// containerEntry is one file of a container, in write order.
type containerEntry struct {
	name string
	data []byte
}

// Sign writes a container holding payload under payloadName to w.
func (s *Signer) Sign(w io.Writer, payloadName string, payload []byte) error {
	entries, err := s.entries(payloadName, payload)
	if err != nil {
		return err
	}
	return s.write(w, entries)
}

func (s *Signer) entries(payloadName string, payload []byte) ([]containerEntry, error) {
	mfDigest := s.manifestDigest
	if mfDigest.name == "" {
		mfDigest, _ = lookupDigest("SHA-256")
	}
	blockDigest := s.blockDigest
	if blockDigest == nil {
		blockDigest = pkcs7.OIDDigestAlgorithmSHA256
	}

	blockExt := ".RSA"
	switch s.Key.(type) {
	case *rsa.PrivateKey:
	case *ecdsa.PrivateKey:
		blockExt = ".EC"
	default:
		return nil, fmt.Errorf("%w: key type %T", ErrUnsupportedSignatureAlgorithm, s.Key)
	}

	var mf manifestWriter
	mf.attr("Manifest-Version", "1.0")
	mf.attr("Created-By", createdBy)
	mf.end()
	entry := section(payloadName, [2]string{mfDigest.name + digestSuffix, digestOf(mfDigest, payload)})
	mf.buf.Write(entry)
	manifestBytes := mf.buf.Bytes()

	var sf manifestWriter
	sf.attr("Signature-Version", "1.0")
	sf.attr(mfDigest.name+digestSuffix+"-Manifest", digestOf(mfDigest, manifestBytes))
	sf.attr("Created-By", createdBy)
	sf.end()
	sf.buf.Write(section(payloadName, [2]string{mfDigest.name + digestSuffix, digestOf(mfDigest, entry)}))
	sfBytes := sf.buf.Bytes()

	signed, err := pkcs7.NewSignedData(sfBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create signed data: %w", err)
	}
	signed.SetDigestAlgorithm(blockDigest)
	if err := signed.AddSigner(s.Certificate, s.Key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("failed to add signer: %w", err)
	}
	signed.Detach()
	block, err := signed.Finish()
	if err != nil {
		return nil, fmt.Errorf("failed to finish signature: %w", err)
	}

	return []containerEntry{
		{manifestPath, manifestBytes},
		{metaInfDir + "/INDEX.SF", sfBytes},
		{metaInfDir + "/INDEX" + blockExt, block},
		{payloadName, payload},
	}, nil
}

func (s *Signer) write(w io.Writer, entries []containerEntry) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	zw := zip.NewWriter(w)
	for _, e := range entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: now()})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", e.name, err)
		}
		if _, err := fw.Write(e.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}
	return zw.Close()
}
