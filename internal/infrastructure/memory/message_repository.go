package memory

import (
	"context"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
	"github.com/oksasatya/go-anon-feedback/internal/domain/repository"
)

type MessageRepository struct {
	s *Store
}

func (r *MessageRepository) Create(_ context.Context, m *entity.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m.ID = newID()
	m.CreatedAt = r.s.now()
	r.s.messages[m.ID] = *m
	return nil
}

func (r *MessageRepository) GetByID(_ context.Context, id string) (*entity.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *MessageRepository) byReceiver(receiverID string) []entity.Message {
	out := make([]entity.Message, 0)
	for _, m := range r.s.messages {
		if m.ReceiverID == receiverID {
			out = append(out, m)
		}
	}
	newestFirst(out)
	return out
}

func (r *MessageRepository) ListByReceiver(_ context.Context, receiverID string, offset, limit int) ([]entity.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return window(r.byReceiver(receiverID), offset, limit), nil
}

func (r *MessageRepository) CountByReceiver(_ context.Context, receiverID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.byReceiver(receiverID)), nil
}

func (r *MessageRepository) UpdateText(_ context.Context, id, text string) (*entity.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m.Text = text
	r.s.messages[id] = m
	return &m, nil
}

func (r *MessageRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.messages[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.messages, id)
	for topicID, refs := range r.s.refs {
		kept := refs[:0]
		for _, ref := range refs {
			if ref.messageID != id {
				kept = append(kept, ref)
			}
		}
		r.s.refs[topicID] = kept
	}
	return nil
}

var _ repository.MessageRepository = (*MessageRepository)(nil)
