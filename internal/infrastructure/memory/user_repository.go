package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
	"github.com/oksasatya/go-anon-feedback/internal/domain/repository"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("%w: users_email_key", repository.ErrDuplicate)
		}
		if u.Verified && existing.Verified && existing.Username == u.Username {
			return fmt.Errorf("%w: users_verified_username_key", repository.ErrDuplicate)
		}
	}

	now := r.s.now()
	u.ID = newID()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// best picks the verified match first, then the most recent one.
func (r *UserRepository) best(match func(u entity.User) bool) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var found *entity.User
	for _, u := range r.s.users {
		if !match(u) {
			continue
		}
		u := u
		switch {
		case found == nil:
			found = &u
		case u.Verified != found.Verified:
			if u.Verified {
				found = &u
			}
		case u.CreatedAt.After(found.CreatedAt):
			found = &u
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	return r.best(func(u entity.User) bool { return u.Username == username })
}

func (r *UserRepository) GetByUsernameAndCode(_ context.Context, username, code string) (*entity.User, error) {
	return r.best(func(u entity.User) bool { return u.Username == username && u.VerifyCode == code })
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.best(func(u entity.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepository) GetByIdentifier(_ context.Context, identifier string) (*entity.User, error) {
	return r.best(func(u entity.User) bool {
		return u.Username == identifier || strings.EqualFold(u.Email, identifier)
	})
}

func (r *UserRepository) VerifiedUsernameExists(_ context.Context, username string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Verified && u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepository) update(id string, fn func(u *entity.User) error) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return nil, err
	}
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u
	return &u, nil
}

func (r *UserRepository) SetVerifyCode(_ context.Context, id, code string, expiresAt time.Time) error {
	_, err := r.update(id, func(u *entity.User) error {
		u.VerifyCode = code
		u.VerifyCodeExpiresAt = expiresAt
		return nil
	})
	return err
}

func (r *UserRepository) MarkVerified(_ context.Context, id string) error {
	_, err := r.update(id, func(u *entity.User) error {
		for otherID, other := range r.s.users {
			if otherID != id && other.Verified && other.Username == u.Username {
				return fmt.Errorf("%w: users_verified_username_key", repository.ErrDuplicate)
			}
		}
		u.Verified = true
		return nil
	})
	return err
}

func (r *UserRepository) SetAcceptMessages(_ context.Context, id string, allow bool) (bool, error) {
	u, err := r.update(id, func(u *entity.User) error {
		u.AcceptMessages = allow
		return nil
	})
	if err != nil {
		return false, err
	}
	return u.AcceptMessages, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
