package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainProposal = "swapgraph/proposal/v1"
	DomainRunInput = "swapgraph/run-input/v1"
	DomainDigest   = "swapgraph/output-digest/v1"
)

// ProposalIDPrefix prefixes every proposal id.
const ProposalIDPrefix = "prop_"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProposalID computes the content-addressed id for a cycle.
// Only the ordered intent-id sequence enters the hash, so the same cycle
// always maps to the same proposal id across runs.
//
// Ids are NFC normalized before hashing, so ids that differ only in
// normalization form share a proposal id. Intent ids are expected to be
// NFC already; the compiler lint flags any that are not.
func ProposalID(intentIDs []string) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"intent_ids": intentIDs,
	})
	if err != nil {
		return "", fmt.Errorf("ProposalID: failed to marshal: %w", err)
	}
	return ProposalIDPrefix + hashWithDomain(DomainProposal, canonical), nil
}

// MustProposalID is like ProposalID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustProposalID(intentIDs []string) string {
	id, err := ProposalID(intentIDs)
	if err != nil {
		panic(err)
	}
	return id
}

// RunInputHash identifies a matching input document by content.
// The store uses it for idempotent run writes. data must already be a
// stable serialization of the input; the store passes the encoding/json
// form, not MarshalCanonical.
func RunInputHash(data []byte) string {
	return hashWithDomain(DomainRunInput, data)
}

// OutputDigest fingerprints the serialized output of a run.
// Replay compares digests to prove byte-identical reruns.
func OutputDigest(data []byte) string {
	return hashWithDomain(DomainDigest, data)
}
