package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
	"github.com/oksasatya/go-anon-feedback/internal/domain/repository"
)

const userColumns = `id, username, email, password_hash, verify_code, verify_code_expires_at,
		verified, accept_messages, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.VerifyCode, &u.VerifyCodeExpiresAt,
		&u.Verified, &u.AcceptMessages, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, verify_code, verify_code_expires_at, verified, accept_messages)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, u.Username, u.Email, u.PasswordHash, u.VerifyCode, u.VerifyCodeExpiresAt, u.Verified, u.AcceptMessages)

	return mapErr(row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1
		ORDER BY verified DESC, created_at DESC
		LIMIT 1
	`, username))
}

func (r *UserRepository) GetByUsernameAndCode(ctx context.Context, username, code string) (*entity.User, error) {
	return scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1 AND verify_code = $2
		ORDER BY verified DESC, created_at DESC
		LIMIT 1
	`, username, code))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*entity.User, error) {
	return scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1 OR lower(email) = lower($1)
		ORDER BY verified DESC, created_at DESC
		LIMIT 1
	`, identifier))
}

func (r *UserRepository) VerifiedUsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND verified)`, username).Scan(&exists)
	if err != nil {
		return false, mapErr(err)
	}
	return exists, nil
}

func (r *UserRepository) SetVerifyCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET verify_code = $1, verify_code_expires_at = $2, updated_at = now()
		WHERE id = $3
	`, code, expiresAt, id)
	if err != nil {
		return mapErr(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	res, err := r.db.Exec(ctx, `UPDATE users SET verified = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetAcceptMessages(ctx context.Context, id string, allow bool) (bool, error) {
	var state bool
	err := r.db.QueryRow(ctx, `
		UPDATE users SET accept_messages = $1, updated_at = now()
		WHERE id = $2
		RETURNING accept_messages
	`, allow, id).Scan(&state)
	if err != nil {
		return false, mapErr(err)
	}
	return state, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
