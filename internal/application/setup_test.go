package application

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
	repo "github.com/oksasatya/go-anon-feedback/internal/domain/repository"
	"github.com/oksasatya/go-anon-feedback/internal/infrastructure/memory"
	"github.com/oksasatya/go-anon-feedback/pkg/helpers"
	"github.com/oksasatya/go-anon-feedback/pkg/mailer"
)

type recordingNotifier struct {
	sent []mailer.Verification
	err  error
}

func (n *recordingNotifier) SendVerification(_ context.Context, v mailer.Verification) error {
	n.sent = append(n.sent, v)
	return n.err
}

func (n *recordingNotifier) last() mailer.Verification {
	return n.sent[len(n.sent)-1]
}

type fixture struct {
	store    *memory.Store
	redis    *miniredis.Miniredis
	notifier *recordingNotifier
	accounts *AccountService
	messages *MessageService
	topics   *TopicService
	clock    time.Time
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.NewStore(),
		redis:    miniredis.RunT(t),
		notifier: &recordingNotifier{},
		clock:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	log := quietLogger()
	jwt := helpers.NewJWTManager("a-secret", "r-secret", time.Hour, 24*time.Hour)
	rdb := helpers.NewRedisClient(f.redis.Addr(), "", 0)

	f.accounts = NewAccountService(f.store.Users(), jwt, rdb, f.notifier, log, 10*time.Minute, 24*time.Hour)
	f.accounts.now = func() time.Time { return f.clock }
	f.messages = NewMessageService(f.store.Users(), f.store.Messages(), f.store.Topics(), nil, nil, DefaultPaging, log)
	f.topics = NewTopicService(f.store.Topics(), f.store.Messages(), nil, DefaultPaging, log)
	return f
}

// verifiedUser signs up and verifies username, returning the stored user.
func (f *fixture) verifiedUser(t *testing.T, username string) *entity.User {
	t.Helper()
	ctx := context.Background()
	_, err := f.accounts.CreateAccount(ctx, SignupInput{Username: username, Email: username + "@example.com", Password: "password1"})
	require.NoError(t, err)
	require.NoError(t, f.accounts.VerifyAccount(ctx, username, f.notifier.last().Code))
	u, err := f.store.Users().GetByUsername(ctx, username)
	require.NoError(t, err)
	return u
}

// brokenAppendTopics fails every AppendMessage.
type brokenAppendTopics struct {
	repo.TopicRepository
	err error
}

func (b brokenAppendTopics) AppendMessage(context.Context, string, string) error {
	return b.err
}

// trackedMessages remembers the ids of created messages.
type trackedMessages struct {
	repo.MessageRepository
	ids []string
}

func (r *trackedMessages) Create(ctx context.Context, m *entity.Message) error {
	if err := r.MessageRepository.Create(ctx, m); err != nil {
		return err
	}
	r.ids = append(r.ids, m.ID)
	return nil
}
