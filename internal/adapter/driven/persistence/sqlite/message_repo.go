package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/oklog/ulid/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// messageRecord is the row layout of the messages table.
type messageRecord struct {
	ID        string    `gorm:"primarykey;size:26"`
	RoomKind  string    `gorm:"size:16;not null;index:idx_messages_room,priority:1"`
	RoomID    string    `gorm:"size:128;not null;index:idx_messages_room,priority:2"`
	SenderID  string    `gorm:"size:128;not null"`
	Text      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"index:idx_messages_room,priority:3"`
	UpdatedAt time.Time
}

func (messageRecord) TableName() string {
	return "messages"
}

func (r messageRecord) toDomain() domain.Message {
	return domain.Message{
		ID:        domain.MessageID(r.ID),
		Kind:      domain.RoomKind(r.RoomKind),
		RoomID:    r.RoomID,
		SenderID:  domain.UserID(r.SenderID),
		Text:      r.Text,
		SentAt:    r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Sender:    domain.Sender{ID: domain.UserID(r.SenderID)},
	}
}

// MessageRepository stores chat messages in SQLite through GORM.
type MessageRepository struct {
	db *gorm.DB
}

// Open opens the database at dsn and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers anyway, and ":memory:" databases exist per
	// connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&messageRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, draft domain.MessageDraft) (domain.Message, error) {
	now := time.Now().UTC()
	rec := messageRecord{
		ID:        ulid.Make().String(),
		RoomKind:  string(draft.Kind),
		RoomID:    draft.RoomID,
		SenderID:  draft.SenderID.String(),
		Text:      draft.Text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Message{}, fmt.Errorf("failed to create message: %w", err)
	}
	return rec.toDomain(), nil
}

// History returns up to limit most recent messages of a chat, oldest first.
func (r *MessageRepository) History(ctx context.Context, kind domain.RoomKind, roomID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []messageRecord
	err := r.db.WithContext(ctx).
		Where("room_kind = ? AND room_id = ?", string(kind), roomID).
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}

	out := make([]domain.Message, len(recs))
	for i, rec := range recs {
		out[len(recs)-1-i] = rec.toDomain()
	}
	return out, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
