// Package devicelog stores the diagnostic messages wallet devices post to
// the web service.
package devicelog

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	ID         string    `bson:"_id" json:"id"`
	Message    string    `bson:"message" json:"message"`
	RemoteAddr string    `bson:"remote_addr" json:"remote_addr"`
	ReceivedAt time.Time `bson:"received_at" json:"received_at"`
	ExpiresAt  time.Time `bson:"expires_at" json:"expires_at"`
}

type Sink interface {
	Record(ctx context.Context, entries []Entry) error
}

// ParseMessages extracts log lines from a request body. Devices send
// {"logs": [...]}; older clients send {"description": "..."}. Anything else
// is kept verbatim as a single message.
func ParseMessages(body []byte) []string {
	var payload struct {
		Description string   `json:"description"`
		Logs        []string `json:"logs"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" {
			return []string{text}
		}
		return nil
	}

	var out []string
	if payload.Description != "" {
		out = append(out, payload.Description)
	}
	for _, line := range payload.Logs {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// NewEntries stamps messages with ids and an expiry ttl after now.
func NewEntries(messages []string, remoteAddr string, now time.Time, ttl time.Duration) []Entry {
	entries := make([]Entry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, Entry{
			ID:         uuid.NewString(),
			Message:    m,
			RemoteAddr: remoteAddr,
			ReceivedAt: now,
			ExpiresAt:  now.Add(ttl),
		})
	}
	return entries
}
