package repository

import (
	"context"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
)

// MessageRepository persists messages. Listings are newest first.
type MessageRepository interface {
	Create(ctx context.Context, m *entity.Message) error
	GetByID(ctx context.Context, id string) (*entity.Message, error)
	ListByReceiver(ctx context.Context, receiverID string, offset, limit int) ([]entity.Message, error)
	CountByReceiver(ctx context.Context, receiverID string) (int, error)
	UpdateText(ctx context.Context, id, text string) (*entity.Message, error)
	// Delete removes the message and every topic reference to it.
	Delete(ctx context.Context, id string) error
}
