package store

import (
	"context"
	"log/slog"
	"sync"

	"memochat-backend/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SQLite only supports one writer at a time, so we need a lock
// whenever we write to the database.
var dbMutex sync.Mutex

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListDocuments returns the knowledge base in insertion order. Read failures
// degrade to an empty result rather than propagating.
func (s *Store) ListDocuments(ctx context.Context) []database.Document {
	var docs []database.Document
	if err := s.db.WithContext(ctx).Order("timestamp ASC").Find(&docs).Error; err != nil {
		slog.Error("error listing documents, returning empty set", "error", err)
		return nil
	}
	return docs
}

func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (database.Document, error) {
	var doc database.Document
	err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	return doc, err
}

func (s *Store) SaveDocument(ctx context.Context, doc *database.Document) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return s.db.WithContext(ctx).Save(doc).Error
}

func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return s.db.WithContext(ctx).Delete(&database.Document{}, "id = ?", id).Error
}

// ListMessages returns the conversation ordered by timestamp ascending, with
// SQLite's rowid breaking ties in insertion order so the two messages of one
// turn never flip on a coarse clock.
// Read failures degrade to an empty result rather than propagating.
func (s *Store) ListMessages(ctx context.Context) []database.Message {
	var messages []database.Message
	if err := s.db.WithContext(ctx).Order("timestamp ASC, rowid ASC").Find(&messages).Error; err != nil {
		slog.Error("error listing messages, returning empty history", "error", err)
		return nil
	}
	return messages
}

func (s *Store) GetMessage(ctx context.Context, id uuid.UUID) (database.Message, error) {
	var message database.Message
	err := s.db.WithContext(ctx).First(&message, "id = ?", id).Error
	return message, err
}

func (s *Store) SaveMessage(ctx context.Context, message *database.Message) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return s.db.WithContext(ctx).Create(message).Error
}

func (s *Store) ClearMessages(ctx context.Context) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return s.db.WithContext(ctx).Where("1 = 1").Delete(&database.Message{}).Error
}
