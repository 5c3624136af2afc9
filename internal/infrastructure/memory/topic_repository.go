package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
	"github.com/oksasatya/go-anon-feedback/internal/domain/repository"
)

type TopicRepository struct {
	s *Store
}

func (r *TopicRepository) withCount(t entity.Topic) *entity.Topic {
	t.MessageCount = len(r.s.refs[t.ID])
	return &t
}

func (r *TopicRepository) Create(_ context.Context, t *entity.Topic) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.topics {
		if existing.OwnerID == t.OwnerID && existing.Title == t.Title {
			return fmt.Errorf("%w: topics_owner_title_key", repository.ErrDuplicate)
		}
	}
	now := r.s.now()
	t.ID = newID()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.MessageCount = 0
	r.s.topics[t.ID] = *t
	return nil
}

func (r *TopicRepository) GetByID(_ context.Context, id string) (*entity.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.topics[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.withCount(t), nil
}

func (r *TopicRepository) GetByOwnerAndTitle(_ context.Context, ownerID, title string) (*entity.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.topics {
		if t.OwnerID == ownerID && t.Title == title {
			return r.withCount(t), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *TopicRepository) ListByOwner(_ context.Context, ownerID string) ([]entity.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]entity.Topic, 0)
	for _, t := range r.s.topics {
		if t.OwnerID == ownerID {
			out = append(out, *r.withCount(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *TopicRepository) Rename(_ context.Context, id, title string) (*entity.Topic, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.topics[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for otherID, other := range r.s.topics {
		if otherID != id && other.OwnerID == t.OwnerID && other.Title == title {
			return nil, fmt.Errorf("%w: topics_owner_title_key", repository.ErrDuplicate)
		}
	}
	t.Title = title
	t.UpdatedAt = r.s.now()
	r.s.topics[id] = t
	return r.withCount(t), nil
}

func (r *TopicRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.topics[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.refs, id)
	for msgID, m := range r.s.messages {
		if m.TopicID == id {
			delete(r.s.messages, msgID)
		}
	}
	delete(r.s.topics, id)
	return nil
}

func (r *TopicRepository) AppendMessage(_ context.Context, topicID, messageID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.topics[topicID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.messages[messageID]; !ok {
		return repository.ErrNotFound
	}
	for _, ref := range r.s.refs[topicID] {
		if ref.messageID == messageID {
			return nil
		}
	}
	r.s.seq++
	r.s.refs[topicID] = append(r.s.refs[topicID], topicRef{messageID: messageID, position: r.s.seq})
	return nil
}

func (r *TopicRepository) HasMessage(_ context.Context, topicID, messageID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, ref := range r.s.refs[topicID] {
		if ref.messageID == messageID {
			return true, nil
		}
	}
	return false, nil
}

func (r *TopicRepository) ListMessages(_ context.Context, topicID string, offset, limit int) ([]entity.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]entity.Message, 0, len(r.s.refs[topicID]))
	for _, ref := range r.s.refs[topicID] {
		if m, ok := r.s.messages[ref.messageID]; ok {
			out = append(out, m)
		}
	}
	return window(out, offset, limit), nil
}

func (r *TopicRepository) CountMessages(_ context.Context, topicID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.refs[topicID]), nil
}

var _ repository.TopicRepository = (*TopicRepository)(nil)
