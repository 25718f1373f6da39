package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/avvvet/pass-services/configs"
	natscli "github.com/avvvet/pass-services/internal/nats"
	"github.com/avvvet/pass-services/internal/passsvc/app"
	"github.com/avvvet/pass-services/internal/passsvc/broker"
	"github.com/avvvet/pass-services/internal/passsvc/db"
	handlers "github.com/avvvet/pass-services/internal/passsvc/handlers"
	"github.com/avvvet/pass-services/internal/passsvc/pkpass"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "pass"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// pg connection
	dbpool, err := db.Connect(cfg.PostgresURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	if err := db.Migrate(cfg.PostgresURL); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	// Connect to NATS
	n, err := natscli.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"-"+instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// push transport lives as long as the service
	transport, err := app.NewTransport(cfg, n.Conn)
	if err != nil {
		log.Fatalf("Invalid push transport: %v", err)
	}
	if err := transport.Open(context.Background()); err != nil {
		log.Fatalf("Failed to open %s push transport: %v", cfg.PushTransport, err)
	}
	defer transport.Close()

	tmpl, err := pkpass.LoadTemplate(cfg.TemplateDir)
	if err != nil {
		log.Fatalf("Failed to load pass template: %v", err)
	}

	deviceLog, closeDeviceLog, err := app.NewDeviceLogSink(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open device log sink: %v", err)
	}
	defer closeDeviceLog()

	services := app.New(app.PostgresRepositories(dbpool), tmpl, app.LoadSigner(cfg), transport, cfg)

	// account changes coming from other services
	accountBroker := broker.NewBroker(n.Conn, services.Accounts)
	sub, err := accountBroker.SubscribeAccountService(cfg.AccountSubject)
	if err != nil {
		log.Errorf("Error: unable to subscribe to %s %v", cfg.AccountSubject, err)
		os.Exit(1)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.CORSOrigin)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(handlers.Services{
		Engine:        services.Engine,
		Accounts:      services.Accounts,
		Passes:        services.Passes,
		Notifier:      services.Notifier,
		Registrations: services.Registrations,
		DeviceLog:     deviceLog,
		DeviceLogTTL:  cfg.DeviceLogTTL,
		Port:          cfg.Port,
	})
	h.InitAuth(cfg.JWTSecret)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
