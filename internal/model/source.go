// Package model defines the data structures shared by the analysis engine.
package model

import (
	"crypto/sha256"
	"fmt"
)

// Path represents a file system path.
type Path string

// Hash is the sha256 fingerprint of a unit's exact text content.
type Hash string

// HashText returns the content hash for the given text.
func HashText(text string) Hash {
	sum := sha256.Sum256([]byte(text))
	return Hash(fmt.Sprintf("%x", sum))
}

// SourceUnit is one script under analysis. The unit owns its parsed tree:
// whenever Text changes the tree and hash must be recomputed together, so a
// diagnostic span is only ever interpreted against the text generation that
// produced it.
type SourceUnit struct {
	Path Path
	Text string
	Hash Hash

	// Tree is the parsed representation, opaque to this package. It is set
	// by the engine after a successful parse and nil for malformed input.
	Tree any

	// Generation counts re-parses of this unit within a single run. It
	// increments every time Text is replaced during fixing.
	Generation int
}

// NewSourceUnit builds a unit for path with the given text and a fresh hash.
func NewSourceUnit(path Path, text string) *SourceUnit {
	return &SourceUnit{
		Path: path,
		Text: text,
		Hash: HashText(text),
	}
}

// SetText replaces the unit's text, invalidating the tree and bumping the
// generation. The caller re-parses before any further detection.
func (u *SourceUnit) SetText(text string) {
	u.Text = text
	u.Hash = HashText(text)
	u.Tree = nil
	u.Generation++
}
