package natsadapter

import (
	"context"
	"encoding/base32"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

// Subjects are "<prefix>.<user>"; the user token is base32hex of the id.
const (
	StreamName              = "ACTIVITIES"
	SubjectUploadedPrefix   = "activity.uploaded"
	SubjectDeletedPrefix    = "activity.deleted"
	SubjectAllActivities    = "activity.>"
	subjectUploadedWildcard = SubjectUploadedPrefix + ".*"
	subjectDeletedWildcard  = SubjectDeletedPrefix + ".*"
)

// DeletedEvent is the payload published when an activity is removed.
type DeletedEvent struct {
	UserID     string    `json:"user_id"`
	ActivityID string    `json:"activity_id"`
	DeletedAt  time.Time `json:"deleted_at"`
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and makes sure the activity stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectAllActivities},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishActivityUploaded announces a newly stored activity.
func (p *Publisher) PublishActivityUploaded(ctx context.Context, event *domain.ActivityUploadedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(UploadedSubject(event.UserID), data, nats.Context(ctx))
	return err
}

// PublishActivityDeleted announces a removed activity.
func (p *Publisher) PublishActivityDeleted(ctx context.Context, userID, activityID string) error {
	data, err := json.Marshal(DeletedEvent{UserID: userID, ActivityID: activityID, DeletedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(DeletedSubject(userID), data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// UploadedSubject is the subject upload events for userID are published on.
func UploadedSubject(userID string) string {
	return SubjectUploadedPrefix + "." + subjectToken(userID)
}

// DeletedSubject is the subject delete events for userID are published on.
func DeletedSubject(userID string) string {
	return SubjectDeletedPrefix + "." + subjectToken(userID)
}

var tokenEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// subjectToken encodes a user id as a single subject token. The encoding is
// injective, so distinct users never share a subject.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return tokenEncoding.EncodeToString([]byte(s))
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
