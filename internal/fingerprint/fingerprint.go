// Package fingerprint computes content digests of records so that two fetches of the
// same record can be compared for material change.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Volatile lists the top level fields that change on every fetch without the record
// itself changing.
var Volatile = []string{"last_updated", "scraped_at"}

// Of returns the hex sha256 digest of the canonical json form of record, with the
// Volatile fields removed. Object keys are serialized in sorted order.
func Of(record any) (string, error) {
	canonical, err := Canonical(record)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Canonical returns the serialized form Of hashes.
func Canonical(record any) ([]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	var generic any
	err = json.Unmarshal(raw, &generic)
	if err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	if obj, ok := generic.(map[string]any); ok {
		for _, key := range Volatile {
			delete(obj, key)
		}
	}

	// maps are marshaled with sorted keys
	return json.Marshal(generic)
}

// Changed reports whether next is materially different from a record whose digest
// is previous. An empty previous digest always counts as a change.
func Changed(previous string, next any) (bool, string, error) {
	digest, err := Of(next)
	if err != nil {
		return false, "", err
	}
	return previous == "" || digest != previous, digest, nil
}
