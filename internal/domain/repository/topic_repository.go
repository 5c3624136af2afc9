package repository

import (
	"context"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
)

// TopicRepository persists topics and their ordered message references.
type TopicRepository interface {
	Create(ctx context.Context, t *entity.Topic) error
	GetByID(ctx context.Context, id string) (*entity.Topic, error)
	GetByOwnerAndTitle(ctx context.Context, ownerID, title string) (*entity.Topic, error)
	ListByOwner(ctx context.Context, ownerID string) ([]entity.Topic, error)
	Rename(ctx context.Context, id, title string) (*entity.Topic, error)
	// Delete removes the topic, its references and the messages posted to it.
	Delete(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, topicID, messageID string) error
	HasMessage(ctx context.Context, topicID, messageID string) (bool, error)
	ListMessages(ctx context.Context, topicID string, offset, limit int) ([]entity.Message, error)
	CountMessages(ctx context.Context, topicID string) (int, error)
}
