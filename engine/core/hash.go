package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/goccy/go-json"
)

// StableJSONBytes encodes v with object keys sorted at every level so equal
// values always produce equal bytes.
func StableJSONBytes(v any) ([]byte, error) {
	bs, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("stable json: %w", err)
	}
	return bs, nil
}

// ETagFromAny returns the SHA-256 hex digest of the stable JSON form of v.
func ETagFromAny(v any) (string, error) {
	bs, err := StableJSONBytes(v)
	if err != nil {
		return "", err
	}
	return ETagFromBytes(bs), nil
}

// ETagFromBytes hashes already encoded content.
func ETagFromBytes(bs []byte) string {
	sum := sha256.Sum256(bs)
	return hex.EncodeToString(sum[:])
}
