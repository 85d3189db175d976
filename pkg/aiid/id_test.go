package aiid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewRecordIDs(t *testing.T) {
	charID := NewCharacterID()
	if !strings.HasPrefix(charID, "char-") {
		t.Fatalf("unexpected character ID %q", charID)
	}
	prefix, _, err := ParseRecordID(charID)
	if err != nil || prefix != CharacterPrefix {
		t.Fatalf("ParseRecordID(%q) = %q, %v", charID, prefix, err)
	}

	convID := NewConversationID()
	prefix, _, err = ParseRecordID(convID)
	if err != nil || prefix != ConversationPrefix {
		t.Fatalf("ParseRecordID(%q) = %q, %v", convID, prefix, err)
	}
	if NewConversationID() == convID {
		t.Fatal("IDs should be unique")
	}
}

func TestParseRecordIDInvalid(t *testing.T) {
	for _, id := range []string{"", "char", "char-notanxid", "-abc"} {
		if _, _, err := ParseRecordID(id); err == nil {
			t.Errorf("expected error for %q", id)
		}
	}
}

func TestNewPromptItemID(t *testing.T) {
	if _, err := uuid.Parse(NewPromptItemID()); err != nil {
		t.Fatalf("expected a UUID: %v", err)
	}
}

func TestValidRecordID(t *testing.T) {
	cases := map[string]bool{
		"char-abc": true,
		"aria":     true,
		"":         false,
		"..":       false,
		"a/b":      false,
		`a\b`:      false,
	}
	for id, want := range cases {
		if got := ValidRecordID(id); got != want {
			t.Errorf("ValidRecordID(%q) = %v, want %v", id, got, want)
		}
	}
}
