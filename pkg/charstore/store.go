// Package charstore persists characters, conversations and message history as
// JSON5 record files.
package charstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"path"
	"slices"
	"time"

	"github.com/rs/zerolog"
	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"go.mau.fi/util/jsontime"

	"github.com/beeper/ai-companion/pkg/aiid"
	"github.com/beeper/ai-companion/pkg/aiutil"
	"github.com/beeper/ai-companion/pkg/companion"
)

// CurrentVersion is the record version written by this package. Version 1
// character records may still carry LegacyFields.
const CurrentVersion = 2

const (
	recordExt        = ".json"
	charactersDir    = "characters"
	conversationsDir = "conversations"
	messagesDir      = "messages"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrInvalidID = errors.New("invalid record ID")
)

type characterRecord struct {
	Version int `json:"version"`
	companion.Character
	LegacyFields
	UpdatedAt jsontime.Unix `json:"updated_at"`
}

type conversationRecord struct {
	Version int `json:"version"`
	companion.Conversation
	UpdatedAt jsontime.Unix `json:"updated_at"`
}

type messagesRecord struct {
	Version   int                     `json:"version"`
	Messages  []companion.ChatMessage `json:"messages"`
	UpdatedAt jsontime.Unix           `json:"updated_at"`
}

// Store reads and writes records through a Backend. Read-modify-write
// operations are serialized per record.
type Store struct {
	backend   Backend
	namespace string
	log       zerolog.Logger
	now       func() time.Time
}

// New creates a store on backend. Stores sharing a namespace share record locks.
func New(backend Backend, namespace string, log zerolog.Logger) *Store {
	return &Store{
		backend:   backend,
		namespace: namespace,
		log:       log,
		now:       time.Now,
	}
}

// NewFileStore creates a store keeping its records under dir.
func NewFileStore(dir string, log zerolog.Logger) *Store {
	return New(&FileBackend{Dir: dir}, dir, log)
}

func recordPath(dir, id string) (string, error) {
	if !aiid.ValidRecordID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return path.Join(dir, id+recordExt), nil
}

func (s *Store) logger(ctx context.Context) *zerolog.Logger {
	log := aiutil.LoggerFromContext(ctx, s.log, "charstore")
	return &log
}

func (s *Store) lock(p string) func() {
	mu := recordLockFor(s.namespace, p)
	mu.Lock()
	return mu.Unlock
}

func (s *Store) write(ctx context.Context, p string, record any) error {
	payload, err := json5.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return s.backend.Write(ctx, p, payload)
}

func decodeCharacter(data []byte) (*characterRecord, bool, error) {
	var rec characterRecord
	if err := json5.Unmarshal(data, &rec); err != nil {
		return nil, false, err
	}
	migrated := false
	if rec.Version < CurrentVersion {
		MigrateLegacyFields(&rec.Character, &rec.LegacyFields)
		ensureItemIDs(rec.PromptItems)
		rec.Version = CurrentVersion
		migrated = true
	}
	return &rec, migrated, nil
}

func (s *Store) readCharacter(ctx context.Context, p string) (*characterRecord, bool, error) {
	data, ok, err := s.backend.Read(ctx, p)
	if err != nil {
		return nil, false, err
	} else if !ok {
		return nil, false, ErrNotFound
	}
	rec, migrated, err := decodeCharacter(data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse %s: %w", p, err)
	}
	return rec, migrated, nil
}

// GetCharacter loads a character. Legacy records are migrated in memory; use
// MigrateCharacters to rewrite them.
func (s *Store) GetCharacter(ctx context.Context, id string) (*companion.Character, error) {
	p, err := recordPath(charactersDir, id)
	if err != nil {
		return nil, err
	}
	rec, migrated, err := s.readCharacter(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load character %s: %w", id, err)
	}
	if migrated {
		s.logger(ctx).Debug().Str("character_id", id).Msg("Migrated legacy character record on load")
	}
	return &rec.Character, nil
}

// SaveCharacter writes a character, assigning IDs to the character and its
// prompt items when missing.
func (s *Store) SaveCharacter(ctx context.Context, character *companion.Character) error {
	if character.ID == "" {
		character.ID = aiid.NewCharacterID()
	}
	ensureItemIDs(character.PromptItems)
	p, err := recordPath(charactersDir, character.ID)
	if err != nil {
		return err
	}
	defer s.lock(p)()
	return s.write(ctx, p, &characterRecord{
		Version:   CurrentVersion,
		Character: *character,
		UpdatedAt: jsontime.U(s.now()),
	})
}

// ListCharacters returns every readable character sorted by name. Unreadable
// records are logged and skipped.
func (s *Store) ListCharacters(ctx context.Context) ([]*companion.Character, error) {
	entries, err := s.backend.List(ctx, charactersDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	characters := make([]*companion.Character, 0, len(entries))
	for _, entry := range entries {
		rec, _, err := decodeCharacter(entry.Data)
		if err != nil {
			s.logger(ctx).Warn().Err(err).Str("path", entry.Key).Msg("Skipping unreadable character record")
			continue
		}
		characters = append(characters, &rec.Character)
	}
	slices.SortFunc(characters, func(a, b *companion.Character) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return characters, nil
}

// MigrateCharacters rewrites every character record older than CurrentVersion
// and returns how many were rewritten.
func (s *Store) MigrateCharacters(ctx context.Context) (int, error) {
	entries, err := s.backend.List(ctx, charactersDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list characters: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if err = ctx.Err(); err != nil {
			return count, err
		}
		migrated, err := s.migrateCharacter(ctx, entry.Key)
		if err != nil {
			return count, err
		}
		if migrated {
			count++
		}
	}
	return count, nil
}

func (s *Store) migrateCharacter(ctx context.Context, p string) (bool, error) {
	defer s.lock(p)()
	rec, migrated, err := s.readCharacter(ctx, p)
	if err != nil {
		return false, err
	}
	if !migrated {
		return false, nil
	}
	rec.UpdatedAt = jsontime.U(s.now())
	if err = s.write(ctx, p, rec); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", p, err)
	}
	s.logger(ctx).Info().Str("character_id", rec.ID).Int("prompt_items", len(rec.PromptItems)).Msg("Migrated character record")
	return true, nil
}

func (s *Store) readConversation(ctx context.Context, p string) (*conversationRecord, error) {
	data, ok, err := s.backend.Read(ctx, p)
	if err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotFound
	}
	var rec conversationRecord
	if err = json5.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p, err)
	}
	return &rec, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*companion.Conversation, error) {
	p, err := recordPath(conversationsDir, id)
	if err != nil {
		return nil, err
	}
	rec, err := s.readConversation(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	return &rec.Conversation, nil
}

// SaveConversation writes a conversation, assigning IDs when missing.
func (s *Store) SaveConversation(ctx context.Context, conversation *companion.Conversation) error {
	if conversation.ID == "" {
		conversation.ID = aiid.NewConversationID()
	}
	ensureItemIDs(conversation.PromptItems)
	p, err := recordPath(conversationsDir, conversation.ID)
	if err != nil {
		return err
	}
	defer s.lock(p)()
	return s.write(ctx, p, &conversationRecord{
		Version:      CurrentVersion,
		Conversation: *conversation,
		UpdatedAt:    jsontime.U(s.now()),
	})
}

// UpdateConversation applies fn to the stored conversation under the record
// lock and writes the result. Nothing is written when fn returns an error.
func (s *Store) UpdateConversation(ctx context.Context, id string, fn func(*companion.Conversation) error) (*companion.Conversation, error) {
	p, err := recordPath(conversationsDir, id)
	if err != nil {
		return nil, err
	}
	defer s.lock(p)()
	rec, err := s.readConversation(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	if err = fn(&rec.Conversation); err != nil {
		return nil, err
	}
	rec.ID = id
	rec.Version = CurrentVersion
	rec.UpdatedAt = jsontime.U(s.now())
	if err = s.write(ctx, p, rec); err != nil {
		return nil, fmt.Errorf("failed to write conversation %s: %w", id, err)
	}
	return &rec.Conversation, nil
}

// SaveVariables replaces the persisted macro variables of a conversation.
func (s *Store) SaveVariables(ctx context.Context, conversationID string, vars map[string]string) error {
	_, err := s.UpdateConversation(ctx, conversationID, func(conv *companion.Conversation) error {
		conv.Variables = maps.Clone(vars)
		return nil
	})
	return err
}

// GetMessages returns the history of a conversation. A conversation without
// stored messages has an empty history.
func (s *Store) GetMessages(ctx context.Context, conversationID string) ([]companion.ChatMessage, error) {
	p, err := recordPath(messagesDir, conversationID)
	if err != nil {
		return nil, err
	}
	rec, err := s.readMessages(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages of %s: %w", conversationID, err)
	}
	return rec.Messages, nil
}

func (s *Store) readMessages(ctx context.Context, p string) (*messagesRecord, error) {
	data, ok, err := s.backend.Read(ctx, p)
	if err != nil {
		return nil, err
	} else if !ok {
		return &messagesRecord{Version: CurrentVersion}, nil
	}
	var rec messagesRecord
	if err = json5.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p, err)
	}
	return &rec, nil
}

// AppendMessage adds a turn to the end of a conversation's history.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, msg companion.ChatMessage) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("invalid message role %q", msg.Role)
	}
	p, err := recordPath(messagesDir, conversationID)
	if err != nil {
		return err
	}
	defer s.lock(p)()
	rec, err := s.readMessages(ctx, p)
	if err != nil {
		return err
	}
	rec.Version = CurrentVersion
	rec.Messages = append(rec.Messages, msg)
	rec.UpdatedAt = jsontime.U(s.now())
	return s.write(ctx, p, rec)
}
