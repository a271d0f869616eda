package history

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Josef1981/EngineersCafe/domain/chat"
)

// Repository provides access to the durable message log.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new message repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append writes a new message and assigns the next identifier. SQLite
// serializes the insert, so ids stay unique and strictly increasing under
// concurrent appends.
func (r *Repository) Append(msg *chat.Message) error {
	if err := r.db.Create(msg).Error; err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListAll retrieves every persisted message in insertion order (ascending id).
// No pagination: acceptable for the target scale.
func (r *Repository) ListAll() ([]*chat.Message, error) {
	var messages []*chat.Message
	if err := r.db.Order("id ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// Count returns the number of persisted messages.
func (r *Repository) Count() (int64, error) {
	var n int64
	if err := r.db.Model(&chat.Message{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}
