package promptvars

import (
	"testing"
	"time"

	"github.com/beeper/ai-companion/pkg/companion"
)

func TestResolveVariables(t *testing.T) {
	vars := SystemVariables{
		VarTime:     "2024-05-01 10:00:00 UTC",
		VarLocation: "Paris",
	}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"time", "It is {{time}}.", "It is 2024-05-01 10:00:00 UTC."},
		{"location", "Location: {{location}}", "Location: Paris"},
		{"missing value stays verbatim", "Device: {{device_info}}", "Device: {{device_info}}"},
		{"unknown token untouched", "{{weather}} in {{location}}", "{{weather}} in Paris"},
		{"no tokens", "plain text", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveVariables(tt.in, vars); got != tt.want {
				t.Errorf("ResolveVariables(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveVariablesEmptyValue(t *testing.T) {
	got := ResolveVariables("{{location}}", SystemVariables{VarLocation: ""})
	if got != "{{location}}" {
		t.Fatalf("empty value should leave token unresolved, got %q", got)
	}
}

func TestDefaultSystemVariables(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	_, loc, err := NormalizeTimezone("Europe/Paris")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}
	vars := DefaultSystemVariables(now, loc, map[string]string{
		VarLocation:   "Paris",
		VarDeviceInfo: "",
	})
	if vars[VarTime] != "2024-05-01 12:00:00 CEST" {
		t.Errorf("unexpected time %q", vars[VarTime])
	}
	if vars[VarLocation] != "Paris" {
		t.Errorf("extra location not merged, got %q", vars[VarLocation])
	}
	if _, ok := vars[VarDeviceInfo]; ok {
		t.Error("empty override should not set device_info")
	}

	overridden := DefaultSystemVariables(now, nil, map[string]string{VarTime: "noon"})
	if overridden[VarTime] != "noon" {
		t.Errorf("extra variables should override computed time, got %q", overridden[VarTime])
	}
}

func TestNormalizeTimezone(t *testing.T) {
	if tz, _, err := NormalizeTimezone("utc"); err != nil || tz != "UTC" {
		t.Fatalf("expected UTC, got %q (err=%v)", tz, err)
	}
	if _, _, err := NormalizeTimezone("local"); err == nil {
		t.Fatal("expected error for local")
	}
	if _, _, err := NormalizeTimezone(""); err == nil {
		t.Fatal("expected error for empty timezone")
	}
	if _, _, err := NormalizeTimezone("Mars/Olympus_Mons"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestResolvePlaceholders(t *testing.T) {
	history := []companion.ChatMessage{
		{Role: companion.RoleUser, Content: "Hi"},
		{Role: companion.RoleAssistant, Content: "Hello!"},
	}
	pc := PlaceholderContext{
		UserName:        "Alice",
		CharacterName:   "Aria",
		LastUserMessage: "Hi",
		HasLastUser:     true,
		History:         history,
	}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"user", "Hello {{user}}", "Hello Alice"},
		{"char spellings", "{{char}} / {{character}}", "Aria / Aria"},
		{"last user message", "Reply to: {{last_user_message}}", "Reply to: Hi"},
		{"history", "{{chat_history}}", "User: Hi\n\nAssistant: Hello!"},
		{"macro syntax untouched", "{{getvar::x}}", "{{getvar::x}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolvePlaceholders(tt.in, pc); got != tt.want {
				t.Errorf("ResolvePlaceholders(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolvePlaceholdersFallbacks(t *testing.T) {
	got := ResolvePlaceholders("{{user}} {{char}} {{last_user_message}} [{{chat_history}}]", PlaceholderContext{})
	want := "User {{char}} {{last_user_message}} []"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatChatHistory(t *testing.T) {
	if got := FormatChatHistory(nil); got != "" {
		t.Fatalf("empty history should format to empty string, got %q", got)
	}
	got := FormatChatHistory([]companion.ChatMessage{
		{Role: companion.RoleSystem, Content: "Be kind."},
		{Role: companion.RoleUser, Content: "Hey"},
	})
	if got != "System: Be kind.\n\nUser: Hey" {
		t.Fatalf("unexpected history format %q", got)
	}
}
