package signing

import "fmt"

// Verification failures. Each check has its own sentinel so callers can tell
// them apart with errors.Is.
var (
	ErrConflictingExpectation        = fmt.Errorf("both an expected certificate and an expected fingerprint were given")
	ErrMalformedContainer            = fmt.Errorf("malformed container")
	ErrNoSignature                   = fmt.Errorf("container is not signed")
	ErrUnexpectedEntry               = fmt.Errorf("unexpected entry in container")
	ErrPayloadMissing                = fmt.Errorf("payload entry missing")
	ErrMultipleSigners               = fmt.Errorf("more than one signer")
	ErrUnsupportedDigest             = fmt.Errorf("unsupported digest")
	ErrUnsupportedSignatureAlgorithm = fmt.Errorf("unsupported signature algorithm")
	ErrBadSignature                  = fmt.Errorf("signature does not verify")
	ErrCertificateMismatch           = fmt.Errorf("signer certificate does not match the pinned certificate")
	ErrFingerprintMismatch           = fmt.Errorf("signer fingerprint does not match the expected fingerprint")
	ErrDigestMismatch                = fmt.Errorf("payload digest mismatch")
	ErrEntryTooLarge                 = fmt.Errorf("signature entry too large")
)
