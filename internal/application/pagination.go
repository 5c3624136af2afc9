package application

import "github.com/oksasatya/go-anon-feedback/internal/domain/entity"

// Paging normalizes page/limit requests.
type Paging struct {
	DefaultLimit int
	MaxLimit     int
}

var DefaultPaging = Paging{DefaultLimit: 10, MaxLimit: 50}

// Normalize clamps page to >= 1 and limit to [1, MaxLimit], replacing
// non-positive limits with DefaultLimit.
func (p Paging) Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = p.DefaultLimit
	}
	if limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	return page, limit
}

// Page is one window of a newest-first listing.
type Page struct {
	Messages      []entity.Message `json:"messages"`
	Page          int              `json:"page"`
	Limit         int              `json:"limit"`
	TotalMessages int              `json:"totalMessages"`
	TotalPages    int              `json:"totalPages"`
}

func newPage(msgs []entity.Message, page, limit, total int) *Page {
	if msgs == nil {
		msgs = []entity.Message{}
	}
	return &Page{
		Messages:      msgs,
		Page:          page,
		Limit:         limit,
		TotalMessages: total,
		TotalPages:    (total + limit - 1) / limit,
	}
}

func offset(page, limit int) int { return (page - 1) * limit }
