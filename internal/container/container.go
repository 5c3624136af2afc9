package container

import (
	"sync"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-anon-feedback/config"
	repo "github.com/oksasatya/go-anon-feedback/internal/domain/repository"
	"github.com/oksasatya/go-anon-feedback/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-anon-feedback/internal/infrastructure/postgres"
	"github.com/oksasatya/go-anon-feedback/pkg/helpers"
	"github.com/oksasatya/go-anon-feedback/pkg/mailer"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

// Repositories is the store backend selected at startup.
type Repositories struct {
	Users    repo.UserRepository
	Messages repo.MessageRepository
	Topics   repo.TopicRepository
}

// PostgresRepositories builds the pgx-backed stores on pool.
func PostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:    pginfra.NewUserRepository(pool),
		Messages: pginfra.NewMessageRepository(pool),
		Topics:   pginfra.NewTopicRepository(pool),
	}
}

// MemoryRepositories builds process-local stores.
func MemoryRepositories() Repositories {
	s := memory.NewStore()
	return Repositories{Users: s.Users(), Messages: s.Messages(), Topics: s.Topics()}
}

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	gcsClient   *storage.Client
	repos       Repositories

	jwtMu      sync.Mutex
	jwtManager *helpers.JWTManager

	mailgunClient *mailer.Mailgun
	rabbitPub     *helpers.RabbitPublisher
	esClient      *elasticsearch.Client
)

func SetConfig(c *config.Config)     { cfg = c }
func GetConfig() *config.Config      { return cfg }
func SetLogger(l *logrus.Logger)     { logger = l }
func GetLogger() *logrus.Logger      { return logger }
func SetPGPool(p *pgxpool.Pool)      { pgPool = p }
func GetPGPool() *pgxpool.Pool       { return pgPool }
func SetRedis(r *redis.Client)       { redisClient = r }
func GetRedis() *redis.Client        { return redisClient }
func SetGCS(s *storage.Client)       { gcsClient = s }
func GetGCS() *storage.Client        { return gcsClient }
func SetRepositories(r Repositories) { repos = r }
func GetRepositories() Repositories  { return repos }
func SetJWT(m *helpers.JWTManager) {
	jwtMu.Lock()
	defer jwtMu.Unlock()
	jwtManager = m
}

// GetJWT returns the token manager, building it from the config on first use.
func GetJWT() *helpers.JWTManager {
	jwtMu.Lock()
	defer jwtMu.Unlock()
	if jwtManager == nil && cfg != nil {
		jwtManager = helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	}
	return jwtManager
}

func SetMailgun(m *mailer.Mailgun)            { mailgunClient = m }
func GetMailgun() *mailer.Mailgun             { return mailgunClient }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }
