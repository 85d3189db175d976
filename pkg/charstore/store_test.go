package charstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	json5 "github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/beeper/ai-companion/pkg/companion"
)

type testBackend struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (b *testBackend) Read(_ context.Context, path string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	val, ok := b.files[path]
	if !ok {
		return nil, false, nil
	}
	return val, true, nil
}

func (b *testBackend) Write(_ context.Context, path string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.files == nil {
		b.files = map[string][]byte{}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	b.files[path] = cp
	return nil
}

func (b *testBackend) List(_ context.Context, prefix string) ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var entries []Entry
	for key, data := range b.files {
		if strings.HasPrefix(key, prefix+"/") {
			entries = append(entries, Entry{Key: key, Data: data})
		}
	}
	return entries, nil
}

func newTestStore(t *testing.T, files map[string][]byte) (*Store, *testBackend) {
	backend := &testBackend{files: files}
	return New(backend, t.Name(), zerolog.Nop()), backend
}

const legacyCharacter = `{
  // written by an old version
  version: 1,
  id: "aria",
  name: "Aria",
  system_prompt: "You are {{char}}.",
  personality: "Cheerful and curious.",
  scenario: "A rainy afternoon in a café.",
  example_dialogue: "",
  prompt_items: [
    {id: "", order: 5, content: "Existing item", enabled: true, role: "system"},
  ],
}`

func TestGetCharacterMigratesLegacyFields(t *testing.T) {
	store, _ := newTestStore(t, map[string][]byte{
		"characters/aria.json": []byte(legacyCharacter),
	})

	character, err := store.GetCharacter(context.Background(), "aria")
	if err != nil {
		t.Fatalf("GetCharacter failed: %v", err)
	}
	if character.SystemPrompt != "You are {{char}}." {
		t.Fatalf("legacy system prompt should be kept, got %q", character.SystemPrompt)
	}
	if len(character.PromptItems) != 3 {
		t.Fatalf("expected 3 prompt items, got %d", len(character.PromptItems))
	}
	personality := character.PromptItems[1]
	if personality.Order != PersonalityOrder || personality.Content != "Cheerful and curious." || !personality.Enabled {
		t.Fatalf("unexpected personality item %+v", personality)
	}
	if personality.Role != companion.RoleSystem || personality.ID == "" {
		t.Fatalf("migrated item needs a system role and an ID: %+v", personality)
	}
	if character.PromptItems[2].Order != ScenarioOrder {
		t.Fatalf("expected scenario at order %d, got %d", ScenarioOrder, character.PromptItems[2].Order)
	}
	if character.PromptItems[0].ID == "" {
		t.Fatal("existing items without an ID should get one")
	}
}

func TestMigrateCharacters(t *testing.T) {
	store, backend := newTestStore(t, map[string][]byte{
		"characters/aria.json": []byte(legacyCharacter),
	})
	ctx := context.Background()
	if err := store.SaveCharacter(ctx, &companion.Character{ID: "bex", Name: "Bex"}); err != nil {
		t.Fatalf("SaveCharacter failed: %v", err)
	}

	count, err := store.MigrateCharacters(ctx)
	if err != nil {
		t.Fatalf("MigrateCharacters failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 migrated record, got %d", count)
	}
	raw := backend.files["characters/aria.json"]
	var rec characterRecord
	if err = json5.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("failed to parse rewritten record: %v", err)
	}
	if rec.Version != CurrentVersion || rec.Personality != "" {
		t.Fatalf("record was not rewritten in the current shape:\n%s", raw)
	}
	var fields map[string]any
	if err = json5.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("failed to parse rewritten record as an object: %v", err)
	}
	for _, key := range []string{"personality", "scenario", "example_dialogue"} {
		if _, ok := fields[key]; ok {
			t.Errorf("legacy key %q still present after migration:\n%s", key, raw)
		}
	}

	first, err := store.GetCharacter(ctx, "aria")
	if err != nil {
		t.Fatalf("GetCharacter failed: %v", err)
	}
	count, err = store.MigrateCharacters(ctx)
	if err != nil || count != 0 {
		t.Fatalf("second migration should be a no-op, got %d, %v", count, err)
	}
	second, _ := store.GetCharacter(ctx, "aria")
	if len(second.PromptItems) != len(first.PromptItems) || second.PromptItems[1].ID != first.PromptItems[1].ID {
		t.Fatal("migration should be stable once written")
	}
}

func TestCharacterNotFound(t *testing.T) {
	store, _ := newTestStore(t, nil)
	_, err := store.GetCharacter(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = store.GetConversation(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvalidIDRejected(t *testing.T) {
	store, _ := newTestStore(t, nil)
	_, err := store.GetCharacter(context.Background(), "../etc/passwd")
	if !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestListCharactersSkipsBrokenRecords(t *testing.T) {
	store, _ := newTestStore(t, map[string][]byte{
		"characters/broken.json": []byte("{not json"),
	})
	ctx := context.Background()
	for _, name := range []string{"Zed", "Aria"} {
		if err := store.SaveCharacter(ctx, &companion.Character{Name: name}); err != nil {
			t.Fatalf("SaveCharacter failed: %v", err)
		}
	}
	characters, err := store.ListCharacters(ctx)
	if err != nil {
		t.Fatalf("ListCharacters failed: %v", err)
	}
	if len(characters) != 2 || characters[0].Name != "Aria" || characters[1].Name != "Zed" {
		t.Fatalf("unexpected characters %+v", characters)
	}
	if !strings.HasPrefix(characters[0].ID, "char-") {
		t.Fatalf("expected generated character ID, got %q", characters[0].ID)
	}
}

func TestConversationVariablesRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, nil)
	ctx := context.Background()
	conv := &companion.Conversation{CharacterID: "aria", MainPrompt: "Be kind."}
	if err := store.SaveConversation(ctx, conv); err != nil {
		t.Fatalf("SaveConversation failed: %v", err)
	}
	if conv.ID == "" {
		t.Fatal("expected a generated conversation ID")
	}

	vars := map[string]string{"mood": "happy"}
	if err := store.SaveVariables(ctx, conv.ID, vars); err != nil {
		t.Fatalf("SaveVariables failed: %v", err)
	}
	vars["mood"] = "changed"

	loaded, err := store.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if loaded.Variables["mood"] != "happy" || loaded.MainPrompt != "Be kind." {
		t.Fatalf("unexpected conversation %+v", loaded)
	}
}

func TestUpdateConversationErrorWritesNothing(t *testing.T) {
	store, _ := newTestStore(t, nil)
	ctx := context.Background()
	conv := &companion.Conversation{ID: "c1", MainPrompt: "before"}
	if err := store.SaveConversation(ctx, conv); err != nil {
		t.Fatalf("SaveConversation failed: %v", err)
	}
	boom := errors.New("boom")
	_, err := store.UpdateConversation(ctx, "c1", func(c *companion.Conversation) error {
		c.MainPrompt = "after"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	loaded, _ := store.GetConversation(ctx, "c1")
	if loaded.MainPrompt != "before" {
		t.Fatalf("failed update must not be written, got %q", loaded.MainPrompt)
	}
}

func TestAppendMessageConcurrent(t *testing.T) {
	store, _ := newTestStore(t, nil)
	ctx := context.Background()

	history, err := store.GetMessages(ctx, "c1")
	if err != nil || len(history) != 0 {
		t.Fatalf("expected empty history, got %v, %v", history, err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.AppendMessage(ctx, "c1", companion.ChatMessage{Role: companion.RoleUser, Content: "hi"}); err != nil {
				t.Errorf("AppendMessage failed: %v", err)
			}
		}()
	}
	wg.Wait()

	history, err = store.GetMessages(ctx, "c1")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(history) != n {
		t.Fatalf("expected %d messages, got %d", n, len(history))
	}
	if err = store.AppendMessage(ctx, "c1", companion.ChatMessage{Role: "narrator", Content: "x"}); err == nil {
		t.Fatal("expected invalid role error")
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, zerolog.Nop())
	ctx := context.Background()

	character := &companion.Character{
		Name: "Aria",
		PromptItems: []companion.PromptItem{{
			Order: 1, Content: "hi", Enabled: true, Role: companion.RoleSystem,
			Injection: &companion.Injection{Enabled: true, Depth: 2},
		}},
	}
	if err := store.SaveCharacter(ctx, character); err != nil {
		t.Fatalf("SaveCharacter failed: %v", err)
	}
	path := filepath.Join(dir, "characters", character.ID+".json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected record file: %v", err)
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Fatalf("expected backup file: %v", err)
	}

	loaded, err := store.GetCharacter(ctx, character.ID)
	if err != nil {
		t.Fatalf("GetCharacter failed: %v", err)
	}
	if loaded.Name != "Aria" || len(loaded.PromptItems) != 1 || !loaded.PromptItems[0].Injected() || loaded.PromptItems[0].Injection.Depth != 2 {
		t.Fatalf("unexpected character %+v", loaded)
	}

	characters, err := store.ListCharacters(ctx)
	if err != nil || len(characters) != 1 {
		t.Fatalf("expected one listed character, got %v, %v", characters, err)
	}

	if err = store.AppendMessage(ctx, "conv-1", companion.ChatMessage{Role: companion.RoleUser, Content: "hello"}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	history, err := store.GetMessages(ctx, "conv-1")
	if err != nil || len(history) != 1 || history[0].Content != "hello" {
		t.Fatalf("unexpected history %v, %v", history, err)
	}
}
