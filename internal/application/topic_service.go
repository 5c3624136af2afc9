package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
	repo "github.com/oksasatya/go-anon-feedback/internal/domain/repository"
)

type TopicService struct {
	Topics   repo.TopicRepository
	Messages repo.MessageRepository
	Index    MessageIndex // optional
	Paging   Paging
	Logger   *logrus.Logger
}

func NewTopicService(topics repo.TopicRepository, messages repo.MessageRepository, index MessageIndex, paging Paging, logger *logrus.Logger) *TopicService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TopicService{Topics: topics, Messages: messages, Index: index, Paging: paging, Logger: logger}
}

// TopicPage is a topic with one page of its messages in insertion order.
// Topic is nil when a title lookup found nothing.
type TopicPage struct {
	Topic *entity.Topic `json:"topic"`
	Page
}

func (s *TopicService) page(ctx context.Context, t *entity.Topic, page, limit int) (*TopicPage, error) {
	total, err := s.Topics.CountMessages(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("count topic messages: %w", err)
	}
	var msgs []entity.Message
	if offset(page, limit) < total {
		msgs, err = s.Topics.ListMessages(ctx, t.ID, offset(page, limit), limit)
		if err != nil {
			return nil, fmt.Errorf("list topic messages: %w", err)
		}
	}
	t.MessageCount = total
	return &TopicPage{Topic: t, Page: *newPage(msgs, page, limit, total)}, nil
}

func (s *TopicService) CreateTopic(ctx context.Context, userID, title string) (*entity.Topic, error) {
	title = entity.NormalizeTitle(title)
	if err := check(rule{"title", title, "topictitle"}); err != nil {
		return nil, err
	}
	t := &entity.Topic{OwnerID: userID, Title: title}
	if err := s.Topics.Create(ctx, t); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, newError(ErrConflict, "Topic already exists")
		}
		return nil, fmt.Errorf("create topic: %w", err)
	}
	topicsCreated.Add(1)
	return t, nil
}

func (s *TopicService) ListTopics(ctx context.Context, userID string) ([]entity.Topic, error) {
	topics, err := s.Topics.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// GetTopicMessages pages through the caller's topic named title.
// A missing topic yields an empty page.
func (s *TopicService) GetTopicMessages(ctx context.Context, userID, title string, page, limit int) (*TopicPage, error) {
	title = entity.NormalizeTitle(title)
	if err := check(rule{"title", title, "topictitle"}); err != nil {
		return nil, err
	}
	page, limit = s.Paging.Normalize(page, limit)

	t, err := s.Topics.GetByOwnerAndTitle(ctx, userID, title)
	if errors.Is(err, repo.ErrNotFound) {
		return &TopicPage{Page: *newPage(nil, page, limit, 0)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup topic: %w", err)
	}
	return s.page(ctx, t, page, limit)
}

func (s *TopicService) find(ctx context.Context, topicID string) (*entity.Topic, error) {
	if err := checkID("topicId", topicID); err != nil {
		return nil, err
	}
	t, err := s.Topics.GetByID(ctx, topicID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, newError(ErrNotFound, "Topic not found")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup topic: %w", err)
	}
	return t, nil
}

func (s *TopicService) owned(ctx context.Context, userID, topicID string) (*entity.Topic, error) {
	t, err := s.find(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != userID {
		return nil, newError(ErrForbidden, "You do not own this topic")
	}
	return t, nil
}

// GetTopic is the public read of a topic and its messages.
func (s *TopicService) GetTopic(ctx context.Context, topicID string, page, limit int) (*TopicPage, error) {
	t, err := s.find(ctx, topicID)
	if err != nil {
		return nil, err
	}
	page, limit = s.Paging.Normalize(page, limit)
	return s.page(ctx, t, page, limit)
}

// AddMessageToTopic posts an anonymous message directly to a topic.
func (s *TopicService) AddMessageToTopic(ctx context.Context, topicID, content string) (*entity.Message, error) {
	if err := check(rule{"content", content, "msgtext"}); err != nil {
		return nil, err
	}
	t, err := s.find(ctx, topicID)
	if err != nil {
		return nil, err
	}

	m := &entity.Message{Text: content, TopicID: t.ID}
	if err := s.Messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := s.Topics.AppendMessage(ctx, t.ID, m.ID); err != nil {
		if derr := s.Messages.Delete(ctx, m.ID); derr != nil {
			s.Logger.WithError(derr).WithField("message_id", m.ID).Warn("remove unlisted topic message failed")
		}
		return nil, fmt.Errorf("append to topic: %w", err)
	}
	messagesSent.Add(1)
	return m, nil
}

func (s *TopicService) ownedMessage(ctx context.Context, userID, topicID, messageID string) error {
	if err := checkID("messageId", messageID); err != nil {
		return err
	}
	if _, err := s.owned(ctx, userID, topicID); err != nil {
		return err
	}
	ok, err := s.Topics.HasMessage(ctx, topicID, messageID)
	if err != nil {
		return fmt.Errorf("lookup topic message: %w", err)
	}
	if !ok {
		return newError(ErrNotFound, "Message not found in topic")
	}
	return nil
}

func (s *TopicService) UpdateTopicMessage(ctx context.Context, userID, topicID, messageID, content string) (*entity.Message, error) {
	if err := check(rule{"content", content, "msgtext"}); err != nil {
		return nil, err
	}
	if err := s.ownedMessage(ctx, userID, topicID, messageID); err != nil {
		return nil, err
	}
	m, err := s.Messages.UpdateText(ctx, messageID, content)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, newError(ErrNotFound, "Message not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	if s.Index != nil && m.ReceiverID != "" {
		if err := s.Index.Index(ctx, *m); err != nil {
			s.Logger.WithError(err).WithField("message_id", m.ID).Warn("index message failed")
		}
	}
	return m, nil
}

func (s *TopicService) RenameTopic(ctx context.Context, userID, topicID, newTitle string) (*entity.Topic, error) {
	newTitle = entity.NormalizeTitle(newTitle)
	if err := check(rule{"newTitle", newTitle, "topictitle"}); err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, userID, topicID); err != nil {
		return nil, err
	}
	t, err := s.Topics.Rename(ctx, topicID, newTitle)
	switch {
	case errors.Is(err, repo.ErrDuplicate):
		return nil, newError(ErrConflict, "Topic already exists")
	case errors.Is(err, repo.ErrNotFound):
		return nil, newError(ErrNotFound, "Topic not found")
	case err != nil:
		return nil, fmt.Errorf("rename topic: %w", err)
	}
	return t, nil
}

// DeleteTopicMessage deletes a message referenced by the caller's topic,
// removing it from every topic.
func (s *TopicService) DeleteTopicMessage(ctx context.Context, userID, topicID, messageID string) error {
	if err := s.ownedMessage(ctx, userID, topicID, messageID); err != nil {
		return err
	}
	if err := s.Messages.Delete(ctx, messageID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return newError(ErrNotFound, "Message not found")
		}
		return fmt.Errorf("delete message: %w", err)
	}
	messagesDeleted.Add(1)
	if s.Index != nil {
		if err := s.Index.Delete(ctx, messageID); err != nil {
			s.Logger.WithError(err).WithField("message_id", messageID).Warn("unindex message failed")
		}
	}
	return nil
}

// DeleteTopic removes the topic and the messages posted directly to it.
// Messages addressed to the owner stay in their inbox.
func (s *TopicService) DeleteTopic(ctx context.Context, userID, topicID string) error {
	if _, err := s.owned(ctx, userID, topicID); err != nil {
		return err
	}
	if err := s.Topics.Delete(ctx, topicID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return newError(ErrNotFound, "Topic not found")
		}
		return fmt.Errorf("delete topic: %w", err)
	}
	s.Logger.WithFields(logrus.Fields{"user_id": userID, "topic_id": topicID}).Info("topic deleted")
	return nil
}
