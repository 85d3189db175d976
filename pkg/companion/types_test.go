package companion

import "testing"

func TestRoleLabel(t *testing.T) {
	cases := map[Role]string{
		RoleUser:      "User",
		RoleAssistant: "Assistant",
		RoleSystem:    "System",
		"":            "",
	}
	for role, want := range cases {
		if got := role.Label(); got != want {
			t.Errorf("Label(%q) = %q, want %q", role, got, want)
		}
	}
}

func TestLastUserMessage(t *testing.T) {
	history := []ChatMessage{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
		{Role: RoleAssistant, Content: "another reply"},
	}
	got, ok := LastUserMessage(history)
	if !ok || got != "second" {
		t.Fatalf("expected last user message %q, got %q (ok=%v)", "second", got, ok)
	}

	if _, ok := LastUserMessage([]ChatMessage{{Role: RoleAssistant, Content: "hi"}}); ok {
		t.Fatal("expected no user message")
	}
}

func TestEffectiveRole(t *testing.T) {
	msg := ProcessedMessage{Role: RoleAssistant}
	if msg.EffectiveRole() != "assistant" {
		t.Fatalf("unadapted message should use its role, got %q", msg.EffectiveRole())
	}
	msg.AdaptedRole = AdaptedRoleModel
	if msg.EffectiveRole() != "model" {
		t.Fatalf("adapted message should use adapted role, got %q", msg.EffectiveRole())
	}
}

func TestInjected(t *testing.T) {
	if (PromptItem{}).Injected() {
		t.Error("item without injection should not be injected")
	}
	if (PromptItem{Injection: &Injection{Enabled: false, Depth: 2}}).Injected() {
		t.Error("disabled injection should not be injected")
	}
	if !(PromptItem{Injection: &Injection{Enabled: true}}).Injected() {
		t.Error("enabled injection should be injected")
	}
}
