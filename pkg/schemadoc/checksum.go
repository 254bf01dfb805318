package schemadoc

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ChecksumPrefix names the hash used by Checksum.
const ChecksumPrefix = "blake2b-256:"

// Checksum fingerprints the collections of a document. GeneratedAt is left
// out, so two exports of the same declarations hash the same.
func Checksum(doc Document) (string, error) {
	body, err := Marshal(Document{Collections: doc.Collections}, false)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	sum := blake2b.Sum256(body)
	return ChecksumPrefix + hex.EncodeToString(sum[:]), nil
}
