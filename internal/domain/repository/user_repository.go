package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write violates a uniqueness rule.
	ErrDuplicate = errors.New("duplicate")
)

// UserRepository defines the interface for user-related database operations.
// Username lookups prefer the verified account, then the most recent one.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	// GetByUsernameAndCode matches any account with username holding code,
	// so each pending registration verifies with its own code.
	GetByUsernameAndCode(ctx context.Context, username, code string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// GetByIdentifier matches either username or email.
	GetByIdentifier(ctx context.Context, identifier string) (*entity.User, error)
	VerifiedUsernameExists(ctx context.Context, username string) (bool, error)
	SetVerifyCode(ctx context.Context, id, code string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id string) error
	SetAcceptMessages(ctx context.Context, id string, allow bool) (bool, error)
}
