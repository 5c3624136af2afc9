package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mailtpl "github.com/oksasatya/go-anon-feedback/pkg/mailer/templates"
)

// ErrMalformedJob marks jobs that can never be delivered and must be dropped.
var ErrMalformedJob = errors.New("malformed email job")

// Prepare resolves a job into subject, text and html, rendering its template when set.
func Prepare(job EmailJob) (subject, text, html string, err error) {
	if strings.TrimSpace(job.To) == "" {
		return "", "", "", fmt.Errorf("%w: missing recipient", ErrMalformedJob)
	}
	if job.Template == "" {
		if job.Subject == "" || (job.Text == "" && job.HTML == "") {
			return "", "", "", fmt.Errorf("%w: empty body", ErrMalformedJob)
		}
		return job.Subject, job.Text, job.HTML, nil
	}
	subject, text, html, err = mailtpl.Render(job.Template, job.Data)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: render %s: %v", ErrMalformedJob, job.Template, err)
	}
	return subject, text, html, nil
}

// Deliver decodes a queued payload and sends it. Errors wrapping
// ErrMalformedJob should be dropped; any other error is retryable.
func Deliver(ctx context.Context, s Sender, body []byte) (EmailJob, error) {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	subject, text, html, err := Prepare(job)
	if err != nil {
		return job, err
	}
	if err := s.Send(ctx, job.To, subject, text, html); err != nil {
		return job, fmt.Errorf("send: %w", err)
	}
	return job, nil
}
