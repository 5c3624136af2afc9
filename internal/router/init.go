package router

import (
	"github.com/oksasatya/go-anon-feedback/internal/application"
	"github.com/oksasatya/go-anon-feedback/internal/container"
	esinfra "github.com/oksasatya/go-anon-feedback/internal/infrastructure/elasticsearch"
	gcsinfra "github.com/oksasatya/go-anon-feedback/internal/infrastructure/gcs"
	handlers "github.com/oksasatya/go-anon-feedback/internal/interface/http"
	"github.com/oksasatya/go-anon-feedback/internal/router/modules"
	"github.com/oksasatya/go-anon-feedback/pkg/mailer"
	mailtpl "github.com/oksasatya/go-anon-feedback/pkg/mailer/templates"
)

// Services are the application services shared by the HTTP modules.
type Services struct {
	Accounts *application.AccountService
	Messages *application.MessageService
	Topics   *application.TopicService
}

// buildNotifier picks how verification codes reach users. Without a usable
// transport the code is only logged.
func buildNotifier() application.Notifier {
	cfg := container.GetConfig()
	log := container.GetLogger()
	if !cfg.MailSendEnabled {
		return mailer.NewLogNotifier(log)
	}
	brand := mailtpl.Brand{CompanyName: cfg.CompanyName, SupportURL: cfg.SupportURL, VerifyEmailURL: cfg.VerifyEmailURL}

	switch cfg.MailTransport {
	case "queue":
		if pub := container.GetRabbitPub(); pub != nil {
			return mailer.NewQueueNotifier(pub, brand)
		}
		log.Warn("mail transport is queue but RabbitMQ is not connected; logging codes instead")
	case "direct":
		if mg := container.GetMailgun(); mg != nil {
			return mailer.NewDirectNotifier(mg, brand)
		}
		log.Warn("mail transport is direct but Mailgun is not configured; logging codes instead")
	}
	return mailer.NewLogNotifier(log)
}

func buildIndex() application.MessageIndex {
	es := container.GetES()
	if es == nil {
		return nil
	}
	return esinfra.NewMessageIndex(es, container.GetConfig().ESMessagesIndex)
}

func buildArchive() application.ArchiveStore {
	gcs := container.GetGCS()
	cfg := container.GetConfig()
	if gcs == nil || cfg.GCSExportBucket == "" {
		return nil
	}
	return gcsinfra.NewArchive(gcs, cfg.GCSExportBucket, cfg.GCSSignedURLTTL)
}

// BuildServices constructs the application services from the container.
func BuildServices() Services {
	cfg := container.GetConfig()
	log := container.GetLogger()
	repos := container.GetRepositories()
	paging := application.Paging{DefaultLimit: cfg.MsgPageSize, MaxLimit: cfg.MsgMaxPageSize}
	index := buildIndex()

	return Services{
		Accounts: application.NewAccountService(repos.Users, container.GetJWT(), container.GetRedis(), buildNotifier(), log, cfg.VerifyCodeTTL, cfg.SessionTTL),
		Messages: application.NewMessageService(repos.Users, repos.Messages, repos.Topics, index, buildArchive(), paging, log),
		Topics:   application.NewTopicService(repos.Topics, repos.Messages, index, paging, log),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry, svc Services) {
	cfg := container.GetConfig()
	log := container.GetLogger()
	jwt := container.GetJWT()

	var db handlers.Pinger
	if pool := container.GetPGPool(); pool != nil {
		db = pool
	}

	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(db, container.GetRedis())))
	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(svc.Accounts, log, cfg.CookieDomain, cfg.CookieSecure), jwt))
	r.Add(modules.NewMessageModule(handlers.NewMessageHandler(svc.Messages, log), jwt))
	r.Add(modules.NewTopicModule(handlers.NewTopicHandler(svc.Topics, log), jwt))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
