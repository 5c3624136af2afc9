package templates

import (
	"net/url"
	"strings"
	"time"
)

// Brand carries the sender-wide fields every email shares.
type Brand struct {
	CompanyName    string
	SupportURL     string
	VerifyEmailURL string
}

type Option func(*EmailData)

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
	}
}

// WithVerifyLink points VerifyURL at base?uname=<username>&code=<code>.
func WithVerifyLink(base string) Option {
	return func(d *EmailData) {
		base = strings.TrimSpace(base)
		if base == "" {
			return
		}
		q := url.Values{}
		q.Set("uname", d.Username)
		q.Set("code", d.Code)
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		d.VerifyURL = base + sep + q.Encode()
	}
}

// NewVerifyCodeData fills the verification email fields and applies opts.
func NewVerifyCodeData(b Brand, username, email, code string, opts ...Option) map[string]any {
	d := EmailData{
		Username:    username,
		Email:       email,
		Code:        code,
		CompanyName: b.CompanyName,
		SupportURL:  b.SupportURL,
	}
	opts = append(opts, WithVerifyLink(b.VerifyEmailURL))
	for _, opt := range opts {
		opt(&d)
	}
	return ToMap(d)
}
