// Package app opens the adapters a trailwhisper binary needs from config.
// Optional backends that fail to connect are left nil so services see a
// nil interface rather than a nil pointer.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/trailwhisper/internal/adapters/nats"
	"github.com/samirrijal/trailwhisper/internal/adapters/postgres"
	"github.com/samirrijal/trailwhisper/internal/adapters/s3archive"
	"github.com/samirrijal/trailwhisper/internal/adapters/sqlite"
	"github.com/samirrijal/trailwhisper/internal/adapters/valkey"
	"github.com/samirrijal/trailwhisper/internal/core/ports"
	"github.com/samirrijal/trailwhisper/internal/pkg/config"
	"github.com/samirrijal/trailwhisper/internal/pkg/fitdecode"
)

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options selects the optional backends to open.
type Options struct {
	Cache     bool
	Publisher bool
	// RawNATS opens a plain connection for the WebSocket relay.
	RawNATS bool
}

// Infra holds opened adapters. Nil fields are not configured or unreachable.
type Infra struct {
	Activities ports.ActivityRepository
	DB         Pinger
	Cache      ports.CacheService
	CachePing  Pinger
	Publisher  ports.EventPublisher
	NATS       *nats.Conn
	Archive    ports.ArchiveStore

	pg      *postgres.DB
	closers []func()
}

// Open connects the store selected by cfg.Database.Driver, which is
// required, and the optional backends named in opts.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Infra, error) {
	in := &Infra{}

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		in.closers = append(in.closers, func() { db.Close() })
		in.Activities = sqlite.NewActivityRepo(db)
		in.DB = db
	default:
		if err := postgres.MigrateUp(cfg.Database.MigrateURL()); err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		in.closers = append(in.closers, db.Close)
		in.Activities = postgres.NewActivityRepo(db)
		in.DB = db
		in.pg = db
	}

	if opts.Cache {
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			in.closers = append(in.closers, cache.Close)
			in.Cache = cache
			in.CachePing = cache
		}
	}

	if opts.Publisher {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			in.closers = append(in.closers, pub.Close)
			in.Publisher = pub
		}
	}

	if opts.RawNATS {
		nc, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			in.closers = append(in.closers, nc.Close)
			in.NATS = nc
		}
	}

	if cfg.Archive.Enabled {
		store, err := s3archive.New(ctx, cfg.Archive.Bucket, cfg.Archive.Region, cfg.Archive.Endpoint)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("archive: %w", err)
		}
		in.Archive = store
	}

	return in, nil
}

// Decoder returns the FIT track decoder.
func (in *Infra) Decoder() ports.TrackDecoder {
	return fitdecode.NewDecoder(fitdecode.FITParser{})
}

// ReportPoolMetrics refreshes the db pool gauges every interval until ctx
// is done. It is a no-op on SQLite.
func (in *Infra) ReportPoolMetrics(ctx context.Context, interval time.Duration) {
	if in.pg == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		in.pg.ReportPoolMetrics()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close releases everything Open acquired, in reverse order.
func (in *Infra) Close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		in.closers[i]()
	}
	in.closers = nil
}
