// Package checksum fingerprints report payloads so nightly runs can be
// compared from logs alone, and confirms a written report matches what was
// rendered.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
)

const prefix = "sha256:"

// ErrMismatch is returned by Verify when a file's digest differs from the
// expected one.
var ErrMismatch = errors.New("checksum mismatch")

// Sum returns the digest of data as "sha256:<hex>".
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return prefix + hex.EncodeToString(h[:])
}

// File streams the file at path and returns its digest in Sum's format.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum: read %s: %w", path, err)
	}
	return format(h), nil
}

// Verify checks that the file at path has digest want.
func Verify(path, want string) error {
	got, err := File(path)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("checksum: %s is %s, want %s: %w", path, got, want, ErrMismatch)
	}
	return nil
}

func format(h hash.Hash) string {
	return prefix + hex.EncodeToString(h.Sum(nil))
}
