package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	config "github.com/avvvet/pass-services/configs"
	natscli "github.com/avvvet/pass-services/internal/nats"
	"github.com/avvvet/pass-services/internal/passsvc/push"
	"github.com/avvvet/pass-services/internal/pushsvc/broker"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "push"

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

	// Connect to NATS
	n, err := natscli.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"-"+instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	transport := push.NewAPNSTransport(cfg.CertificatePath, cfg.CertificatePassword, cfg.APNSProduction)
	if err := transport.Open(context.Background()); err != nil {
		log.Fatalf("Failed to open APNs transport: %v", err)
	}
	defer transport.Close()

	b := broker.NewBroker(n.Conn, transport, cfg.PushTimeout)
	sub, err := b.QueueSubscribePush(push.DeliverSubject, cfg.PushQueueGroup)
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(1)
	}
	log.Infof("%s service %s waiting for deliveries", SERVICE_NAME, instanceId)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	// let in-flight deliveries finish
	if err := sub.Drain(); err != nil {
		log.Warnf("drain subscription: %v", err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
