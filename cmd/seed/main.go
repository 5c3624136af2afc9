package main

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"github.com/oksasatya/go-anon-feedback/config"
	"github.com/oksasatya/go-anon-feedback/internal/domain/entity"
	"github.com/oksasatya/go-anon-feedback/internal/domain/repository"
	pginfra "github.com/oksasatya/go-anon-feedback/internal/infrastructure/postgres"
	"github.com/oksasatya/go-anon-feedback/pkg/helpers"
)

const (
	demoUsername = "demo_user"
	demoEmail    = "demo@example.com"
	demoPassword = "password123"
	demoTopic    = "general"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pc := pginfra.PoolConfigFrom(cfg)
	pc.AppName += "-seed"
	pc.MaxConns, pc.MinConns = 2, 1
	pool, err := pginfra.NewPool(ctx, pc)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	var user *entity.User
	var topic *entity.Topic
	err = pginfra.WithTx(ctx, pool, func(tx pgx.Tx) error {
		var err error
		if user, err = seedUser(ctx, pginfra.NewUserRepository(tx)); err != nil {
			return err
		}
		topic, err = seedTopic(ctx, pginfra.NewTopicRepository(tx), user.ID)
		if err != nil {
			return err
		}

		msg := &entity.Message{Text: "Welcome! This is what anonymous feedback looks like.", ReceiverID: user.ID}
		if err := pginfra.NewMessageRepository(tx).Create(ctx, msg); err != nil {
			return err
		}
		return pginfra.NewTopicRepository(tx).AppendMessage(ctx, topic.ID, msg.ID)
	})
	if err != nil {
		logger.Fatalf("seed failed: %v", err)
	}

	logger.WithField("user_id", user.ID).
		WithField("topic_id", topic.ID).
		Infof("seeded user %s (%s / %s)", demoUsername, demoEmail, demoPassword)
}

func seedUser(ctx context.Context, users repository.UserRepository) (*entity.User, error) {
	u, err := users.GetByEmail(ctx, demoEmail)
	if err == nil {
		if !u.Verified {
			if err := users.MarkVerified(ctx, u.ID); err != nil {
				return nil, err
			}
			u.Verified = true
		}
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := helpers.HashPassword(demoPassword)
	if err != nil {
		return nil, err
	}
	u = &entity.User{
		Username:            demoUsername,
		Email:               demoEmail,
		PasswordHash:        hash,
		VerifyCodeExpiresAt: time.Now(),
		Verified:            true,
		AcceptMessages:      true,
	}
	return u, users.Create(ctx, u)
}

func seedTopic(ctx context.Context, topics repository.TopicRepository, ownerID string) (*entity.Topic, error) {
	t, err := topics.GetByOwnerAndTitle(ctx, ownerID, demoTopic)
	if err == nil || !errors.Is(err, repository.ErrNotFound) {
		return t, err
	}
	t = &entity.Topic{OwnerID: ownerID, Title: demoTopic}
	return t, topics.Create(ctx, t)
}
