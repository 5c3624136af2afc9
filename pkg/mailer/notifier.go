package mailer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	mailtpl "github.com/oksasatya/go-anon-feedback/pkg/mailer/templates"
)

// Verification is a request to email a verification code.
type Verification struct {
	To        string
	Username  string
	Code      string
	ExpiresAt time.Time
}

// Publisher puts a JSON payload on a queue.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

func verifyJob(b mailtpl.Brand, v Verification) EmailJob {
	return EmailJob{
		To:       v.To,
		Template: mailtpl.VerifyCode,
		Data:     mailtpl.NewVerifyCodeData(b, v.Username, v.To, v.Code, mailtpl.WithExpiresAt(v.ExpiresAt)),
	}
}

// QueueNotifier hands verification emails to the email worker via RabbitMQ.
type QueueNotifier struct {
	pub   Publisher
	brand mailtpl.Brand
}

func NewQueueNotifier(pub Publisher, brand mailtpl.Brand) *QueueNotifier {
	return &QueueNotifier{pub: pub, brand: brand}
}

func (n *QueueNotifier) SendVerification(ctx context.Context, v Verification) error {
	return n.pub.PublishJSON(ctx, verifyJob(n.brand, v))
}

// DirectNotifier renders and sends inline, without the queue.
type DirectNotifier struct {
	sender Sender
	brand  mailtpl.Brand
}

func NewDirectNotifier(sender Sender, brand mailtpl.Brand) *DirectNotifier {
	return &DirectNotifier{sender: sender, brand: brand}
}

func (n *DirectNotifier) SendVerification(ctx context.Context, v Verification) error {
	subject, text, html, err := Prepare(verifyJob(n.brand, v))
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, v.To, subject, text, html)
}

// LogNotifier only logs the code. Used when mail sending is disabled.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendVerification(_ context.Context, v Verification) error {
	if n.logger != nil {
		n.logger.WithFields(logrus.Fields{
			"to":         v.To,
			"username":   v.Username,
			"code":       v.Code,
			"expires_at": v.ExpiresAt.UTC().Format(time.RFC3339),
		}).Info("verification email (not sent)")
	}
	return nil
}
