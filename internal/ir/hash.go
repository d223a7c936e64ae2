package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainValue  = "nodeplay/value/v1"
	DomainScript = "nodeplay/script/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ValueHash returns a stable identity for a value. The engine's cycle
// detector keys property propagations on it, so equal values reached by
// different paths collapse to one key.
func ValueHash(v IRValue) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ValueHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainValue, canonical), nil
}

// ScriptHash returns the content hash of an exported graph. Saving the
// same graph twice yields the same hash.
func ScriptHash(g GraphRecord) (string, error) {
	canonical, err := CanonicalGraph(g)
	if err != nil {
		return "", fmt.Errorf("ScriptHash: %w", err)
	}
	return hashWithDomain(DomainScript, canonical), nil
}

// MustValueHash is like ValueHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustValueHash(v IRValue) string {
	h, err := ValueHash(v)
	if err != nil {
		panic(err)
	}
	return h
}
