package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests. The version suffix leaves room for
// an algorithm change without colliding with older digests.
const (
	DomainSubject = "prodgraph/subject/v1"
	DomainValue   = "prodgraph/value/v1"
	DomainNode    = "prodgraph/node/v1"
)

// Hash computes SHA-256 over domain, a 0x00 separator, then data.
// The separator keeps the domain/data boundary unambiguous.
func Hash(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest hashes the canonical encoding of v under domain.
func Digest(domain string, v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return Hash(domain, data), nil
}

// Equal reports whether a and b have the same canonical encoding.
// Values that cannot be encoded are never equal to anything.
func Equal(a, b any) bool {
	ca, err := MarshalCanonical(a)
	if err != nil {
		return false
	}
	cb, err := MarshalCanonical(b)
	if err != nil {
		return false
	}
	return string(ca) == string(cb)
}

// MustDigest is like Digest but panics on error.
// Use only in tests or when inputs are known to be encodable.
func MustDigest(domain string, v any) string {
	d, err := Digest(domain, v)
	if err != nil {
		panic(err)
	}
	return d
}
