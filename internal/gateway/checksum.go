package gateway

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Algorithm selects the digest used for request checksums.
type Algorithm string

const (
	// SHA256 is the gateway's default checksum algorithm.
	SHA256 Algorithm = "SHA256"
	// SHA1 is the legacy alternative some merchant accounts still use.
	SHA1 Algorithm = "SHA1"
)

var (
	// ErrUnknownEndpoint indicates the operation name has no registered spec.
	ErrUnknownEndpoint = errors.New("unknown gateway endpoint")
	// ErrChecksumNotApplicable indicates the endpoint does not authenticate
	// with a request checksum.
	ErrChecksumNotApplicable = errors.New("endpoint does not require a checksum")
)

// Hash concatenates the non-empty values in order, with no separator, and
// returns the lowercase hex digest. The scheme is the gateway's legacy
// concatenation hash and is reproduced as-is for wire compatibility.
func Hash(values []string, alg Algorithm) string {
	var b strings.Builder
	for _, v := range values {
		if v == "" {
			continue
		}
		b.WriteString(v)
	}

	switch alg {
	case SHA1:
		sum := sha1.Sum([]byte(b.String()))
		return hex.EncodeToString(sum[:])
	default:
		sum := sha256.Sum256([]byte(b.String()))
		return hex.EncodeToString(sum[:])
	}
}

// HashForEndpoint computes the checksum for one outbound call by resolving
// the endpoint's ordered field list against the request data and the
// merchant secret.
//
// A required field missing from the request data contributes an empty
// string rather than failing the computation; a missing optional field is
// skipped entirely. This mirrors the gateway's own convention, where a
// required-but-blank field is transmitted as an empty string and still
// participates in the concatenation.
func HashForEndpoint(name string, data map[string]string, secretKey string, alg Algorithm) (string, error) {
	spec, ok := Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}
	if !spec.RequiresChecksum {
		return "", fmt.Errorf("%w: %s", ErrChecksumNotApplicable, name)
	}

	values := make([]string, 0, len(spec.ChecksumFields))
	for _, field := range spec.ChecksumFields {
		if field.Source == SourceMerchantSecret {
			values = append(values, secretKey)
			continue
		}

		v, present := data[field.Name]
		switch {
		case present:
			values = append(values, v)
		case field.Required:
			values = append(values, "")
		}
	}

	return Hash(values, alg), nil
}

// Verify recomputes the checksum for the endpoint and compares it against
// the provided value, ignoring case. Verification is a predicate: any
// internal failure (unknown endpoint, no checksum defined) yields false
// rather than an error.
func Verify(name string, data map[string]string, provided, secretKey string, alg Algorithm) bool {
	expected, err := HashForEndpoint(name, data, secretKey, alg)
	if err != nil {
		return false
	}
	return strings.EqualFold(expected, provided)
}
