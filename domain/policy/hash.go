package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	domainerrors "github.com/reglet-dev/hookguard/domain/errors"
	"github.com/reglet-dev/hookguard/domain/entities"
)

// FileDigest returns the hex sha256 of the file at path.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the monitored program
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Pin returns the document form of a digest, "sha256:<hex>".
func Pin(digest string) string {
	return entities.HashPrefix + digest
}

// PayloadDigest returns the hex sha256 of data.
func PayloadDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// verifyHash compares the file's current content with the rule's pin.
// Unsupported schemes, missing files and read errors all fail.
func (e *Engine) verifyHash(path string, rule pathRule) bool {
	if rule.digest == "" {
		e.config.logger.Debug("unsupported hash scheme", "entry", rule.source)
		return false
	}
	actual, err := FileDigest(path)
	if err != nil {
		e.config.logger.Debug("hash verification failed",
			"error", &domainerrors.HashError{Err: err, Path: path})
		return false
	}
	if actual != rule.digest {
		e.config.logger.Debug("hash verification failed",
			"error", &domainerrors.HashError{Path: path, Expected: Pin(rule.digest), Actual: actual})
		return false
	}
	return true
}
