package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
	repo "github.com/oksasatya/go-anon-feedback/internal/domain/repository"
)

// MessageIndex is the optional full-text index of received messages.
type MessageIndex interface {
	Index(ctx context.Context, m entity.Message) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, receiverID, q string, size int) ([]entity.Message, error)
}

// ArchiveStore keeps exported message archives.
type ArchiveStore interface {
	Put(ctx context.Context, userID string, data []byte) (string, error)
}

// ErrExportUnavailable is returned when no archive store is configured.
var ErrExportUnavailable = errors.New("export not configured")

const exportBatch = 500

type MessageService struct {
	Users    repo.UserRepository
	Messages repo.MessageRepository
	Topics   repo.TopicRepository
	Index    MessageIndex // optional
	Archive  ArchiveStore // optional
	Paging   Paging
	Logger   *logrus.Logger
}

func NewMessageService(users repo.UserRepository, messages repo.MessageRepository, topics repo.TopicRepository, index MessageIndex, archive ArchiveStore, paging Paging, logger *logrus.Logger) *MessageService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MessageService{
		Users:    users,
		Messages: messages,
		Topics:   topics,
		Index:    index,
		Archive:  archive,
		Paging:   paging,
		Logger:   logger,
	}
}

func (s *MessageService) index(ctx context.Context, m *entity.Message) {
	if s.Index == nil || m.ReceiverID == "" {
		return
	}
	if err := s.Index.Index(ctx, *m); err != nil {
		s.Logger.WithError(err).WithField("message_id", m.ID).Warn("index message failed")
	}
}

func (s *MessageService) unindex(ctx context.Context, id string) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Delete(ctx, id); err != nil {
		s.Logger.WithError(err).WithField("message_id", id).Warn("unindex message failed")
	}
}

// ListMessages returns one newest-first page of the messages received by userID.
func (s *MessageService) ListMessages(ctx context.Context, userID string, page, limit int) (*Page, error) {
	page, limit = s.Paging.Normalize(page, limit)

	total, err := s.Messages.CountByReceiver(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	if offset(page, limit) >= total {
		return newPage(nil, page, limit, total), nil
	}
	msgs, err := s.Messages.ListByReceiver(ctx, userID, offset(page, limit), limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return newPage(msgs, page, limit, total), nil
}

type SendInput struct {
	Username string
	Content  string
	Topic    string
}

// SendMessage stores an anonymous message for the named user, optionally
// filing it under one of the receiver's topics. Filing is best effort once the
// message is stored.
func (s *MessageService) SendMessage(ctx context.Context, in SendInput) (*entity.Message, error) {
	title := entity.NormalizeTitle(in.Topic)
	rules := []rule{
		{"username", strings.TrimSpace(in.Username), "required"},
		{"content", in.Content, "msgtext"},
	}
	if title != "" {
		rules = append(rules, rule{"topic", title, "topictitle"})
	}
	if err := check(rules...); err != nil {
		return nil, err
	}

	receiver, err := s.Users.GetByUsername(ctx, strings.TrimSpace(in.Username))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, newError(ErrNotFound, "User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup receiver: %w", err)
	}
	if !receiver.AcceptMessages {
		messagesRejected.Add(1)
		return nil, newError(ErrRejected, "User is not accepting messages")
	}

	m := &entity.Message{Text: in.Content, ReceiverID: receiver.ID}
	if err := s.Messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	messagesSent.Add(1)
	s.index(ctx, m)

	if title != "" {
		if err := s.fileUnder(ctx, receiver.ID, title, m.ID); err != nil {
			s.Logger.WithError(err).WithFields(logrus.Fields{
				"message_id": m.ID,
				"topic":      title,
			}).Warn("file message under topic failed")
		}
	}
	return m, nil
}

// fileUnder appends messageID to the owner's topic, creating the topic on first use.
func (s *MessageService) fileUnder(ctx context.Context, ownerID, title, messageID string) error {
	t, err := s.Topics.GetByOwnerAndTitle(ctx, ownerID, title)
	if errors.Is(err, repo.ErrNotFound) {
		t = &entity.Topic{OwnerID: ownerID, Title: title}
		err = s.Topics.Create(ctx, t)
		if errors.Is(err, repo.ErrDuplicate) {
			t, err = s.Topics.GetByOwnerAndTitle(ctx, ownerID, title)
		} else if err == nil {
			topicsCreated.Add(1)
		}
	}
	if err != nil {
		return fmt.Errorf("resolve topic %q: %w", title, err)
	}
	if err := s.Topics.AppendMessage(ctx, t.ID, messageID); err != nil {
		return fmt.Errorf("append to topic: %w", err)
	}
	return nil
}

// owned loads a message and checks that userID received it.
func (s *MessageService) owned(ctx context.Context, userID, messageID string) (*entity.Message, error) {
	if err := checkID("messageId", messageID); err != nil {
		return nil, err
	}
	m, err := s.Messages.GetByID(ctx, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, newError(ErrNotFound, "Message not found")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup message: %w", err)
	}
	if m.ReceiverID != userID {
		return nil, newError(ErrForbidden, "You are not allowed to modify this message")
	}
	return m, nil
}

// DeleteMessage removes a received message and its references from every topic.
func (s *MessageService) DeleteMessage(ctx context.Context, userID, messageID string) error {
	if _, err := s.owned(ctx, userID, messageID); err != nil {
		return err
	}
	if err := s.Messages.Delete(ctx, messageID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return newError(ErrNotFound, "Message not found")
		}
		return fmt.Errorf("delete message: %w", err)
	}
	messagesDeleted.Add(1)
	s.unindex(ctx, messageID)
	return nil
}

func (s *MessageService) UpdateMessage(ctx context.Context, userID, messageID, content string) (*entity.Message, error) {
	if err := check(rule{"newContent", content, "msgtext"}); err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, userID, messageID); err != nil {
		return nil, err
	}
	m, err := s.Messages.UpdateText(ctx, messageID, content)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, newError(ErrNotFound, "Message not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	s.index(ctx, m)
	return m, nil
}

func (s *MessageService) SetAcceptMessages(ctx context.Context, userID string, allow bool) (bool, error) {
	state, err := s.Users.SetAcceptMessages(ctx, userID, allow)
	if errors.Is(err, repo.ErrNotFound) {
		return false, newError(ErrNotFound, "User not found")
	}
	if err != nil {
		return false, fmt.Errorf("set accept messages: %w", err)
	}
	return state, nil
}

func (s *MessageService) AcceptMessages(ctx context.Context, userID string) (bool, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return false, newError(ErrNotFound, "User not found")
	}
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return u.AcceptMessages, nil
}

// SearchMessages runs a full-text query over the caller's received messages.
func (s *MessageService) SearchMessages(ctx context.Context, userID, q string, size int) ([]entity.Message, error) {
	q = strings.TrimSpace(q)
	if err := check(rule{"q", q, "required,max=200"}); err != nil {
		return nil, err
	}
	if s.Index == nil {
		return []entity.Message{}, nil
	}
	_, size = s.Paging.Normalize(1, size)
	msgs, err := s.Index.Search(ctx, userID, q, size)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	return msgs, nil
}

type Export struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

type exportDoc struct {
	UserID     string           `json:"user_id"`
	ExportedAt time.Time        `json:"exported_at"`
	Messages   []entity.Message `json:"messages"`
}

// ExportMessages writes every received message to the archive store.
func (s *MessageService) ExportMessages(ctx context.Context, userID string) (*Export, error) {
	if s.Archive == nil {
		return nil, ErrExportUnavailable
	}

	doc := exportDoc{UserID: userID, ExportedAt: time.Now().UTC(), Messages: []entity.Message{}}
	for off := 0; ; off += exportBatch {
		batch, err := s.Messages.ListByReceiver(ctx, userID, off, exportBatch)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		doc.Messages = append(doc.Messages, batch...)
		if len(batch) < exportBatch {
			break
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	url, err := s.Archive.Put(ctx, userID, data)
	if err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	s.Logger.WithFields(logrus.Fields{"user_id": userID, "count": len(doc.Messages)}).Info("messages exported")
	return &Export{URL: url, Count: len(doc.Messages)}, nil
}
