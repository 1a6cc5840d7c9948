package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// HashPrefix is the only accepted content hash scheme.
const HashPrefix = "sha256:"

// Entry is one allow-list item: a bare pattern, or a pattern pinned to the
// sha256 of the file it names.
//
// In documents an Entry is either a string or an object:
//
//	"allow_modify": ["$PWD", {"path": "$PWD/setup.cfg", "hash": "sha256:..."}]
type Entry struct {
	Pattern string `json:"path" validate:"required"`
	Hash    string `json:"hash,omitempty" validate:"omitempty,hashspec"`
}

// E is shorthand for an unpinned entry.
func E(pattern string) Entry {
	return Entry{Pattern: pattern}
}

// Pinned reports whether the entry carries a content hash.
func (e Entry) Pinned() bool {
	return e.Hash != ""
}

// Digest returns the hex digest of a sha256 pin. ok is false for unpinned
// entries and for any other hash scheme.
func (e Entry) Digest() (hex string, ok bool) {
	if !strings.HasPrefix(e.Hash, HashPrefix) {
		return "", false
	}
	hex = strings.ToLower(strings.TrimPrefix(e.Hash, HashPrefix))
	return hex, hex != ""
}

// MarshalJSON writes unpinned entries as plain strings.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Hash == "" {
		return json.Marshal(e.Pattern)
	}
	type object struct {
		Path string `json:"path"`
		Hash string `json:"hash"`
	}
	return json.Marshal(object{Path: e.Pattern, Hash: e.Hash})
}

// UnmarshalJSON accepts a string or an object with "path" (or "pattern") and "hash".
func (e *Entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = Entry{Pattern: s}
		return nil
	}
	var obj struct {
		Path    string `json:"path"`
		Pattern string `json:"pattern"`
		Hash    string `json:"hash"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("entry must be a string or an object with path and hash: %w", err)
	}
	e.Pattern = obj.Path
	if e.Pattern == "" {
		e.Pattern = obj.Pattern
	}
	e.Hash = obj.Hash
	return nil
}

// PayloadHash pins the content fetched from a URL.
type PayloadHash struct {
	URL  string `json:"url" validate:"required"`
	Hash string `json:"hash" validate:"required,hashspec"`
}

// Digest returns the hex digest of the pin, see Entry.Digest.
func (p PayloadHash) Digest() (string, bool) {
	return Entry{Hash: p.Hash}.Digest()
}

func containsEntry(list []Entry, e Entry) bool {
	for _, x := range list {
		if x.Pattern == e.Pattern && x.Hash == e.Hash {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
