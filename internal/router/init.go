package router

import (
	"github.com/yogaswara/account-service/internal/application"
	"github.com/yogaswara/account-service/internal/container"
	pginfra "github.com/yogaswara/account-service/internal/infrastructure/postgres"
	handlers "github.com/yogaswara/account-service/internal/interface/http"
	"github.com/yogaswara/account-service/internal/router/modules"
	"github.com/yogaswara/account-service/pkg/helpers"
)

func buildService() *application.Service {
	cfg := container.GetConfig()
	svc := &application.Service{
		Accounts: pginfra.NewAccountRepository(container.GetPGPool()),
		Orders:   pginfra.NewOrderRepository(container.GetPGPool()),
		Hasher:   container.GetHasher(),
		Issuer:   container.GetResetIssuer(),
		Sessions: container.GetSessions(),
		Mailer:   container.GetMailgun(),
		ResetURL: cfg.ResetPasswordURL,

		Logger:    container.GetLogger(),
		GCS:       container.GetGCS(),
		GCSBucket: cfg.GCSBucket,
		ES:        container.GetES(),
		ESIndex:   cfg.ESAccountsIndex,
	}
	// avoid a non-nil interface wrapping a nil publisher
	if pub := container.GetRabbitPub(); pub != nil {
		svc.Pub = pub
	}
	if rdb := container.GetRedis(); rdb != nil {
		svc.Records = helpers.NewRedisSessionStore(rdb)
	}
	return svc
}

// InitModules initializes all application modules and registers them with the
// router registry. Called once during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	svc := buildService()

	authHandler := handlers.NewAuthHandler(svc, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure)
	accountHandler := handlers.NewAccountHandler(svc, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure)

	r.Add(modules.NewAuthModule(authHandler))
	r.Add(modules.NewAccountModule(accountHandler, container.GetSessions()))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
