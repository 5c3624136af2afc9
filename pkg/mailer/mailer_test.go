package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailtpl "github.com/oksasatya/go-anon-feedback/pkg/mailer/templates"
)

type fakeSender struct {
	to, subject, text, html string
	err                     error
	calls                   int
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	f.calls++
	f.to, f.subject, f.text, f.html = to, subject, text, html
	return f.err
}

type fakePublisher struct {
	bodies []any
}

func (f *fakePublisher) PublishJSON(_ context.Context, body any) error {
	f.bodies = append(f.bodies, body)
	return nil
}

var verification = Verification{
	To:        "alice@example.com",
	Username:  "alice",
	Code:      "654321",
	ExpiresAt: time.Now().Add(10 * time.Minute),
}

func TestQueueNotifier_PublishesTemplateJob(t *testing.T) {
	pub := &fakePublisher{}
	n := NewQueueNotifier(pub, mailtpl.Brand{CompanyName: "Acme"})

	require.NoError(t, n.SendVerification(context.Background(), verification))
	require.Len(t, pub.bodies, 1)

	job, ok := pub.bodies[0].(EmailJob)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", job.To)
	assert.Equal(t, mailtpl.VerifyCode, job.Template)
	assert.Equal(t, "654321", job.Data["Code"])
}

func TestDeliver_RendersQueuedJob(t *testing.T) {
	body, err := json.Marshal(verifyJob(mailtpl.Brand{CompanyName: "Acme"}, verification))
	require.NoError(t, err)

	s := &fakeSender{}
	_, err = Deliver(context.Background(), s, body)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", s.to)
	assert.Equal(t, "Acme verification code: 654321", s.subject)
	assert.Contains(t, s.html, "654321")
}

func TestDeliver_MalformedIsDropped(t *testing.T) {
	s := &fakeSender{}

	_, err := Deliver(context.Background(), s, []byte("{not json"))
	assert.ErrorIs(t, err, ErrMalformedJob)

	_, err = Deliver(context.Background(), s, []byte(`{"to":"a@b.c","template":"nope"}`))
	assert.ErrorIs(t, err, ErrMalformedJob)

	_, err = Deliver(context.Background(), s, []byte(`{"subject":"x","text":"y"}`))
	assert.ErrorIs(t, err, ErrMalformedJob)
	assert.Zero(t, s.calls)
}

func TestDeliver_SendFailureIsRetryable(t *testing.T) {
	s := &fakeSender{err: errors.New("mailgun down")}
	_, err := Deliver(context.Background(), s, []byte(`{"to":"a@b.c","subject":"x","text":"y"}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedJob)
}

func TestDirectNotifier_Sends(t *testing.T) {
	s := &fakeSender{}
	n := NewDirectNotifier(s, mailtpl.Brand{})
	require.NoError(t, n.SendVerification(context.Background(), verification))
	assert.Equal(t, 1, s.calls)
	assert.Contains(t, s.text, "654321")
}
