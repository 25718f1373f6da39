package main

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	config "github.com/avvvet/pass-services/configs"
	natscli "github.com/avvvet/pass-services/internal/nats"
	"github.com/avvvet/pass-services/internal/passsvc/app"
	"github.com/avvvet/pass-services/internal/passsvc/db"
	"github.com/avvvet/pass-services/internal/passsvc/pkpass"
	"github.com/nats-io/nats.go"
)

const SERVICE_NAME = "ctl"

var cfg config.Config

func main() {
	root := &cobra.Command{
		Use:           "passctl",
		Short:         "operate the pass service: schema, accounts, passes and pushes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv(SERVICE_NAME)
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			config.SetLogLevel(os.Getenv("LOG_LEVEL"))
			return nil
		},
	}

	root.AddCommand(
		migrateCmd(),
		accountCmd(),
		passCmd(),
		registrationsCmd(),
		pushCmd(),
		materializeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return db.Migrate(cfg.PostgresURL)
		},
	}
}

// withApp connects to postgres (and NATS when pushes go through it) and
// runs fn with the wired services.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	pool, err := db.Connect(cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect to DB: %w", err)
	}
	defer db.ClosePool()

	var nc *nats.Conn
	if cfg.PushTransport == "nats" {
		n, err := natscli.Connect(cfg.NatsURL, cfg.NatsToken, "passctl")
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer n.Conn.Close()
		nc = n.Conn
	}
	transport, err := app.NewTransport(cfg, nc)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := transport.Open(ctx); err != nil {
		return fmt.Errorf("open push transport: %w", err)
	}
	defer transport.Close()

	var tmpl *pkpass.Template
	if _, err := os.Stat(cfg.TemplateDir); err == nil {
		if tmpl, err = pkpass.LoadTemplate(cfg.TemplateDir); err != nil {
			return err
		}
	} else {
		log.Debugf("no pass template at %s", cfg.TemplateDir)
	}

	return fn(ctx, app.New(app.PostgresRepositories(pool), tmpl, app.LoadSigner(cfg), transport, cfg))
}
