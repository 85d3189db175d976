package stringutil

import "testing"

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "a", "b"); got != "a" {
		t.Fatalf("expected a, got %q", got)
	}
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestCapitalize(t *testing.T) {
	cases := map[string]string{
		"user":   "User",
		"":       "",
		"éclair": "Éclair",
		"X":      "X",
	}
	for in, want := range cases {
		if got := Capitalize(in); got != want {
			t.Errorf("Capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("héllo", 2); got != "hé" {
		t.Fatalf("expected hé, got %q", got)
	}
	if got := TruncateRunes("abc", 5); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	if got := TruncateRunes("abc", 0); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestEnvOr(t *testing.T) {
	if got := EnvOr("config", "  env "); got != "env" {
		t.Fatalf("expected env, got %q", got)
	}
	if got := EnvOr("config", " "); got != "config" {
		t.Fatalf("expected config, got %q", got)
	}
}
