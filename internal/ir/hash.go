package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSequence = "pathminer/sequence/v2"
	DomainPath     = "pathminer/path/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SequenceID computes the content-addressed ID of an emitted sequence: the
// run, the entry method, the tracked object, its emission stamp and its
// history. Distinct objects with equal histories get distinct IDs.
func SequenceID(runID, method string, object ObjectID, seq int64, h HistoryRecord) (string, error) {
	obj := map[string]any{
		"run_id": runID,
		"method": method,
		"object": map[string]any{
			"scope": object.Scope,
			"repr":  object.Repr,
			"type":  object.Type,
		},
		"seq":     seq,
		"history": h.Canonical(),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SequenceID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainSequence, canonical), nil
}

// PathHash computes the identity of a sequence of choice points. Each choice
// point is rendered by the caller as a stable "<method>#<stmt>" key.
func PathHash(choicePoints []string) string {
	return hashWithDomain(DomainPath, []byte(strings.Join(choicePoints, "\n")))
}

// MustSequenceID is like SequenceID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSequenceID(runID, method string, object ObjectID, seq int64, h HistoryRecord) string {
	id, err := SequenceID(runID, method, object, seq, h)
	if err != nil {
		panic(err)
	}
	return id
}
