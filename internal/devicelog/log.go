package devicelog

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// LogSink writes device messages to the service log.
type LogSink struct{}

func (LogSink) Record(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		log.WithFields(log.Fields{
			"operation":   "device-log",
			"remote_addr": e.RemoteAddr,
			"log_id":      e.ID,
		}).Info(e.Message)
	}
	return nil
}
