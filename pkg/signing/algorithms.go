package signing

import (
	"encoding/asn1"
	"fmt"
)

var (
	oidSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	oidSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	oidSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}

	oidRSA           = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	oidRSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	oidRSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	oidRSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}

	oidECPublicKey     = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	oidECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	oidECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
)

// knownNames labels common OIDs in error messages.
var knownNames = map[string]string{
	"1.3.14.3.2.26":        "SHA1",
	"1.2.840.113549.2.5":   "MD5",
	"1.2.840.113549.1.1.4": "MD5withRSA",
	"1.2.840.113549.1.1.5": "SHA1withRSA",
	"1.2.840.10040.4.1":    "DSA",
	"1.2.840.10040.4.3":    "SHA1withDSA",
	"1.2.840.10045.4.1":    "SHA1withECDSA",
}

var allowedSignerDigests = []asn1.ObjectIdentifier{oidSHA256, oidSHA384, oidSHA512}

var allowedSignatureAlgorithms = []asn1.ObjectIdentifier{
	oidRSA, oidRSAWithSHA256, oidRSAWithSHA384, oidRSAWithSHA512,
	oidECPublicKey, oidECDSAWithSHA256, oidECDSAWithSHA384, oidECDSAWithSHA512,
}

func oidName(oid asn1.ObjectIdentifier) string {
	if name, ok := knownNames[oid.String()]; ok {
		return name
	}
	return oid.String()
}

func contains(list []asn1.ObjectIdentifier, oid asn1.ObjectIdentifier) bool {
	for _, o := range list {
		if o.Equal(oid) {
			return true
		}
	}
	return false
}

// checkAlgorithms rejects signer infos using weak digests or signature schemes,
// whether or not the signature itself verifies.
func checkAlgorithms(digest, signature asn1.ObjectIdentifier) error {
	if !contains(allowedSignerDigests, digest) {
		return fmt.Errorf("%w: %s", ErrUnsupportedDigest, oidName(digest))
	}
	if !contains(allowedSignatureAlgorithms, signature) {
		return fmt.Errorf("%w: %s", ErrUnsupportedSignatureAlgorithm, oidName(signature))
	}
	return nil
}
