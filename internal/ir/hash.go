package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for changing the canonical form.
const (
	DomainProblem = "qcml/problem/v1"
	DomainCone    = "qcml/cone/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns the domain-separated SHA-256 of v's canonical JSON.
func ContentHash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ContentHash(%s): failed to marshal: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustContentHash is like ContentHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustContentHash(domain string, v any) string {
	h, err := ContentHash(domain, v)
	if err != nil {
		panic(err)
	}
	return h
}
