package http

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trailwhisper/internal/core/usecases"
)

// Pinger is a backing service that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UploadLimits bounds a single upload request.
type UploadLimits struct {
	MaxFiles     int
	MaxFileBytes int64
	Timeout      time.Duration
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Activities *usecases.ActivityService
	Uploads    *usecases.UploadService
	Visits     *usecases.VisitService
	Limits     UploadLimits
	NATS       *nats.Conn
	DB         Pinger
	Cache      Pinger
	Version    string
}

func (d *Dependencies) limits() UploadLimits {
	l := d.Limits
	if l.MaxFiles <= 0 {
		l.MaxFiles = 20
	}
	if l.MaxFileBytes <= 0 {
		l.MaxFileBytes = 25 << 20
	}
	if l.Timeout <= 0 {
		l.Timeout = 60 * time.Second
	}
	return l
}
