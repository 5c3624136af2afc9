package entity

import (
	"time"
)

// User is the aggregate root for accounts.
// Passwords are stored as bcrypt hashes in PasswordHash.
type User struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	VerifyCode          string
	VerifyCodeExpiresAt time.Time
	Verified            bool
	AcceptMessages      bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CodeMatches reports whether code equals the stored verification code and
// has not expired at now.
func (u *User) CodeMatches(code string, now time.Time) bool {
	return u.VerifyCode != "" && u.VerifyCode == code && u.VerifyCodeExpiresAt.After(now)
}
