// Package app wires stores, collaborators and services together for the
// pass binaries.
package app

import (
	"context"
	"fmt"

	config "github.com/avvvet/pass-services/configs"
	"github.com/avvvet/pass-services/internal/db"
	"github.com/avvvet/pass-services/internal/devicelog"
	"github.com/avvvet/pass-services/internal/passsvc/pkpass"
	"github.com/avvvet/pass-services/internal/passsvc/push"
	"github.com/avvvet/pass-services/internal/passsvc/service"
	"github.com/avvvet/pass-services/internal/passsvc/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type App struct {
	Auth          *service.AuthService
	Registrations *service.RegistrationService
	Updates       *service.UpdateService
	Passes        *service.PassService
	Notifier      *service.NotificationService
	Accounts      *service.AccountService
	Engine        *service.Engine
}

// Repositories groups the three storage contracts.
type Repositories struct {
	Passes        service.PassRepository
	Registrations service.RegistrationRepository
	Accounts      service.AccountRepository
}

func PostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Passes:        store.NewPassStore(pool),
		Registrations: store.NewRegistrationStore(pool),
		Accounts:      store.NewAccountStore(pool),
	}
}

func New(repos Repositories, tmpl *pkpass.Template, signer pkpass.Signer, transport push.Transport, cfg config.Config) *App {
	a := &App{}
	a.Auth = service.NewAuthService(repos.Passes)
	a.Registrations = service.NewRegistrationService(repos.Registrations)
	a.Updates = service.NewUpdateService(a.Registrations, repos.Passes)
	a.Passes = service.NewPassService(repos.Passes, repos.Accounts, tmpl, signer, service.PassConfig{
		TeamID:        cfg.TeamID,
		WebServiceURL: cfg.WebServiceURL,
		SignTimeout:   cfg.SignTimeout,
		StagingDir:    cfg.StagingDir,
	})
	a.Notifier = service.NewNotificationService(repos.Passes, a.Registrations, transport, cfg.PushTimeout)
	a.Accounts = service.NewAccountService(repos.Accounts, repos.Passes, a.Notifier, cfg.PassTypeID)
	a.Engine = service.NewEngine(a.Auth, a.Registrations, a.Updates, a.Passes)
	return a
}

// LoadSigner returns the PKCS#7 signer, or nil when no certificate is
// configured. Without a signer every materialization fails.
func LoadSigner(cfg config.Config) pkpass.Signer {
	if cfg.CertificatePath == "" {
		log.Warn("CERTIFICATE_PATH is not set, passes cannot be signed")
		return nil
	}
	signer, err := pkpass.LoadPKCS7Signer(cfg.CertificatePath, cfg.CertificatePassword, cfg.WWDRCertificatePath)
	if err != nil {
		log.Errorf("unable to load signing certificate: %v", err)
		return nil
	}
	return signer
}

// NewTransport picks the push transport named by PUSH_TRANSPORT. nc is only
// used by the nats transport.
func NewTransport(cfg config.Config, nc *nats.Conn) (push.Transport, error) {
	switch cfg.PushTransport {
	case "nats":
		if nc == nil {
			return nil, fmt.Errorf("nats transport needs a NATS connection")
		}
		return push.NewNATSTransport(nc), nil
	case "apns":
		return push.NewAPNSTransport(cfg.CertificatePath, cfg.CertificatePassword, cfg.APNSProduction), nil
	default:
		return push.LogTransport{}, nil
	}
}

// NewDeviceLogSink connects the configured device log sink. The returned
// close function is never nil.
func NewDeviceLogSink(ctx context.Context, cfg config.Config) (devicelog.Sink, func(), error) {
	if cfg.DeviceLogSink != "mongo" {
		return devicelog.LogSink{}, func() {}, nil
	}

	database, err := db.ConnectToDB(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	sink, err := devicelog.NewMongoSink(ctx, database)
	if err != nil {
		db.Disconnect(context.Background(), database)
		return nil, nil, err
	}
	return sink, func() { db.Disconnect(context.Background(), database) }, nil
}
