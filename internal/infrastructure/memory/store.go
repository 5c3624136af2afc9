// Package memory is a process-local store backend used for development
// (STORE_DRIVER=memory) and service tests. All repositories returned by one
// Store share the same state so cascading deletes behave like the SQL schema.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
	"github.com/oksasatya/go-anon-feedback/internal/domain/repository"
)

type topicRef struct {
	messageID string
	position  int64
}

type Store struct {
	mu sync.RWMutex

	users    map[string]entity.User
	messages map[string]entity.Message
	topics   map[string]entity.Topic
	refs     map[string][]topicRef // topic id -> ordered refs
	seq      int64

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]entity.User),
		messages: make(map[string]entity.Message),
		topics:   make(map[string]entity.Topic),
		refs:     make(map[string][]topicRef),
		now:      time.Now,
	}
}

func (s *Store) Users() repository.UserRepository       { return &UserRepository{s: s} }
func (s *Store) Messages() repository.MessageRepository { return &MessageRepository{s: s} }
func (s *Store) Topics() repository.TopicRepository     { return &TopicRepository{s: s} }

func newID() string { return uuid.NewString() }

// newestFirst orders by created_at DESC, id DESC.
func newestFirst(ms []entity.Message) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.After(ms[j].CreatedAt)
		}
		return ms[i].ID > ms[j].ID
	})
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}
