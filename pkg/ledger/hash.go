package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gowebpki/jcs"
)

// canonicalPayload serializes a payload as RFC 8785 canonical JSON so
// the hash recomputed at verification time is byte-identical to the
// one computed at append time.
func canonicalPayload(payload map[string]any) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("payload serialization: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("payload canonicalization: %w", err)
	}
	return string(canonical), nil
}

// computeEntryHash chains an event to its predecessor:
// H(event_id || timestamp || event_type || actor || payload || previous_hash).
func computeEntryHash(eventID string, ts time.Time, eventType, actor, payload, previousHash string) string {
	content := strings.Join([]string{
		eventID,
		ts.UTC().Format(time.RFC3339Nano),
		eventType,
		actor,
		payload,
		previousHash,
	}, "|")
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// verifyEntries replays entries in order against an expected-previous
// accumulator starting at genesis. Shared by both engines.
func verifyEntries(entries []Entry) error {
	expected := GenesisHash
	for _, e := range entries {
		if e.PreviousHash != expected {
			return fmt.Errorf("%w: entry %s (seq %d) previous hash mismatch", ErrChainBroken, e.EventID, e.Sequence)
		}
		payload, err := canonicalPayload(e.Payload)
		if err != nil {
			return fmt.Errorf("%w: entry %s payload not canonicalizable: %v", ErrChainBroken, e.EventID, err)
		}
		recomputed := computeEntryHash(e.EventID, e.Timestamp, e.EventType, e.Actor, payload, e.PreviousHash)
		if recomputed != e.EventHash {
			return fmt.Errorf("%w: entry %s (seq %d) hash mismatch", ErrChainBroken, e.EventID, e.Sequence)
		}
		expected = e.EventHash
	}
	return nil
}
