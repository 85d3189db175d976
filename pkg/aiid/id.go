// Package aiid generates and parses record identifiers.
package aiid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/xid"
)

// ID prefixes of stored records.
const (
	CharacterPrefix    = "char"
	ConversationPrefix = "conv"
)

// NewCharacterID creates a sortable character ID.
// Format: "char-{xid}"
func NewCharacterID() string {
	return fmt.Sprintf("%s-%s", CharacterPrefix, xid.New().String())
}

// NewConversationID creates a sortable conversation ID.
// Format: "conv-{xid}"
func NewConversationID() string {
	return fmt.Sprintf("%s-%s", ConversationPrefix, xid.New().String())
}

// NewPromptItemID creates a random prompt item ID.
func NewPromptItemID() string {
	return uuid.NewString()
}

// ParseRecordID splits a record ID into its prefix and xid.
// Returns an error if the ID doesn't match the expected format.
func ParseRecordID(recordID string) (prefix string, parsed xid.ID, err error) {
	prefix, rest, ok := strings.Cut(recordID, "-")
	if !ok || prefix == "" {
		return "", xid.NilID(), fmt.Errorf("invalid record ID %q", recordID)
	}
	parsed, err = xid.FromString(rest)
	if err != nil {
		return "", xid.NilID(), fmt.Errorf("invalid record ID %q: %w", recordID, err)
	}
	return prefix, parsed, nil
}

// ValidRecordID reports whether id is safe to use as a file name.
func ValidRecordID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.ContainsRune(id, 0)
}
