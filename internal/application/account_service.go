package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
	repo "github.com/oksasatya/go-anon-feedback/internal/domain/repository"
	"github.com/oksasatya/go-anon-feedback/pkg/helpers"
	"github.com/oksasatya/go-anon-feedback/pkg/mailer"
)

// Notifier delivers verification codes.
type Notifier interface {
	SendVerification(ctx context.Context, v mailer.Verification) error
}

type AccountService struct {
	Users      repo.UserRepository
	JWT        *helpers.JWTManager
	Redis      *redis.Client // optional; without it sessions are not revocable
	Notifier   Notifier
	Logger     *logrus.Logger
	CodeTTL    time.Duration
	SessionTTL time.Duration

	now func() time.Time
}

func NewAccountService(users repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, notifier Notifier, logger *logrus.Logger, codeTTL, sessionTTL time.Duration) *AccountService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AccountService{
		Users:      users,
		JWT:        jwt,
		Redis:      rdb,
		Notifier:   notifier,
		Logger:     logger,
		CodeTTL:    codeTTL,
		SessionTTL: sessionTTL,
		now:        time.Now,
	}
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// SessionView is the caller's identity with flags read from the store.
type SessionView struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Verified       bool   `json:"verified"`
	AcceptMessages bool   `json:"accept_messages"`
}

func viewOf(u *entity.User) *SessionView {
	return &SessionView{
		UserID:         u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Verified:       u.Verified,
		AcceptMessages: u.AcceptMessages,
	}
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

// SignupResult reports the account and whether the code email went out.
type SignupResult struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Resent    bool   `json:"resent"`
	Delivered bool   `json:"delivered"`
}

func (s *AccountService) newCode() (string, time.Time, error) {
	code, err := helpers.GenVerifyCode()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate verify code: %w", err)
	}
	return code, s.now().Add(s.CodeTTL), nil
}

// CreateAccount registers a new unverified user, or re-issues the code for a
// pending registration of the same email.
func (s *AccountService) CreateAccount(ctx context.Context, in SignupInput) (*SignupResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := check(
		rule{"username", in.Username, "required,uname"},
		rule{"email", in.Email, "required,email"},
		rule{"password", in.Password, "required,pwd"},
	); err != nil {
		return nil, err
	}

	taken, err := s.Users.VerifiedUsernameExists(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, newError(ErrConflict, "Username is already taken")
	}

	code, expiresAt, err := s.newCode()
	if err != nil {
		return nil, err
	}

	existing, err := s.Users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil && existing.Verified:
		return nil, newError(ErrConflict, "User already exists with this email")
	case err == nil:
		// pending registration: new code only, password and username unchanged
		if err := s.Users.SetVerifyCode(ctx, existing.ID, code, expiresAt); err != nil {
			return nil, fmt.Errorf("reissue verify code: %w", err)
		}
		res := &SignupResult{UserID: existing.ID, Username: existing.Username, Email: existing.Email, Resent: true}
		res.Delivered = s.notify(ctx, existing.Email, existing.Username, code, expiresAt)
		return res, nil
	case !errors.Is(err, repo.ErrNotFound):
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		Username:            in.Username,
		Email:               in.Email,
		PasswordHash:        hash,
		VerifyCode:          code,
		VerifyCodeExpiresAt: expiresAt,
		AcceptMessages:      true,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, newError(ErrConflict, "User already exists with this email")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	accountsCreated.Add(1)

	res := &SignupResult{UserID: u.ID, Username: u.Username, Email: u.Email}
	res.Delivered = s.notify(ctx, u.Email, u.Username, code, expiresAt)
	return res, nil
}

func (s *AccountService) notify(ctx context.Context, email, username, code string, expiresAt time.Time) bool {
	if s.Notifier == nil {
		return false
	}
	err := s.Notifier.SendVerification(ctx, mailer.Verification{To: email, Username: username, Code: code, ExpiresAt: expiresAt})
	if err != nil {
		emailFailures.Add(1)
		s.Logger.WithError(err).WithField("username", username).Error("send verification email failed")
		return false
	}
	return true
}

// VerifyAccount exchanges a verification code for a verified account.
func (s *AccountService) VerifyAccount(ctx context.Context, username, code string) error {
	username = strings.TrimSpace(username)
	code = strings.TrimSpace(code)
	if err := check(
		rule{"username", username, "required,uname"},
		rule{"code", code, "required,otp"},
	); err != nil {
		return err
	}

	u, err := s.Users.GetByUsernameAndCode(ctx, username, code)
	if errors.Is(err, repo.ErrNotFound) {
		if _, err := s.Users.GetByUsername(ctx, username); errors.Is(err, repo.ErrNotFound) {
			return newError(ErrNotFound, "User not found")
		} else if err != nil {
			return fmt.Errorf("lookup username: %w", err)
		}
		return newError(ErrInvalidCode, "Incorrect verification code")
	}
	if err != nil {
		return fmt.Errorf("lookup username: %w", err)
	}

	if !u.CodeMatches(code, s.now()) {
		return newError(ErrInvalidCode, "Verification code has expired, please sign up again to get a new code")
	}

	if err := s.Users.MarkVerified(ctx, u.ID); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return newError(ErrConflict, "Username is already taken")
		}
		return fmt.Errorf("mark verified: %w", err)
	}
	if !u.Verified {
		accountsVerified.Add(1)
	}
	return nil
}

// CheckUsernameAvailable reports whether no verified user holds username.
func (s *AccountService) CheckUsernameAvailable(ctx context.Context, username string) (bool, error) {
	if err := check(rule{"username", username, "required,uname"}); err != nil {
		return false, err
	}
	taken, err := s.Users.VerifiedUsernameExists(ctx, username)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return !taken, nil
}

// Authenticate validates identifier (username or email) and password without issuing tokens.
func (s *AccountService) Authenticate(ctx context.Context, identifier, password string) (*entity.User, error) {
	identifier = strings.TrimSpace(identifier)
	if err := check(
		rule{"identifier", identifier, "required"},
		rule{"password", password, "required"},
	); err != nil {
		return nil, err
	}

	u, err := s.Users.GetByIdentifier(ctx, identifier)
	if errors.Is(err, repo.ErrNotFound) {
		loginsFailed.Add(1)
		return nil, newError(ErrNotFound, "No user found with this email or username")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup identifier: %w", err)
	}
	if !u.Verified {
		loginsFailed.Add(1)
		return nil, newError(ErrUnverified, "Please verify your account before logging in")
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		loginsFailed.Add(1)
		return nil, newError(ErrInvalidCredentials, "Incorrect password")
	}
	return u, nil
}

func sessionUser(u *entity.User) helpers.SessionUser {
	return helpers.SessionUser{UserID: u.ID, Username: u.Username, Verified: u.Verified, AcceptMessages: u.AcceptMessages}
}

func (s *AccountService) signPair(u *entity.User, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(sessionUser(u), sid)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate access token: %w", err)
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(sessionUser(u), sid)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *AccountService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	pair, err := s.signPair(u, sid)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("issue tokens failed")
		return TokenPair{}, err
	}

	if s.Redis != nil {
		fields := map[string]any{
			"user_id":    u.ID,
			"username":   u.Username,
			"sid":        sid,
			"created_at": s.now().UTC().Format(time.RFC3339Nano),
		}
		if err := helpers.SaveSession(ctx, s.Redis, u.ID, fields, s.SessionTTL); err != nil {
			return TokenPair{}, fmt.Errorf("save session: %w", err)
		}
	}
	return pair, nil
}

func (s *AccountService) Login(ctx context.Context, identifier, password string) (*SessionView, TokenPair, error) {
	u, err := s.Authenticate(ctx, identifier, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	loginsSucceeded.Add(1)
	return viewOf(u), pair, nil
}

// Refresh rotates session id and tokens when the refresh token matches the active session.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*SessionView, TokenPair, error) {
	unauth := newError(ErrUnauthenticated, "Invalid or expired session")
	if refreshToken == "" {
		return nil, TokenPair{}, unauth
	}
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, TokenPair{}, unauth
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, TokenPair{}, unauth
	}
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	if s.Redis != nil {
		active, err := helpers.SessionID(ctx, s.Redis, u.ID)
		if err != nil {
			return nil, TokenPair{}, fmt.Errorf("read session: %w", err)
		}
		if active == "" || active != claims.SessionID {
			return nil, TokenPair{}, unauth
		}
	}

	sid := uuid.NewString()
	pair, err := s.signPair(u, sid)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if s.Redis != nil {
		fields := map[string]any{
			"sid":        sid,
			"updated_at": s.now().UTC().Format(time.RFC3339Nano),
		}
		if err := helpers.SaveSession(ctx, s.Redis, u.ID, fields, s.SessionTTL); err != nil {
			return nil, TokenPair{}, fmt.Errorf("save session: %w", err)
		}
	}
	return viewOf(u), pair, nil
}

// Logout revokes the user's active session.
func (s *AccountService) Logout(ctx context.Context, userID string) error {
	if s.Redis == nil {
		return nil
	}
	if err := helpers.DeleteSession(ctx, s.Redis, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CurrentSession returns the caller's identity with fresh flags.
func (s *AccountService) CurrentSession(ctx context.Context, userID string) (*SessionView, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, newError(ErrUnauthenticated, "Not authenticated")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return viewOf(u), nil
}
