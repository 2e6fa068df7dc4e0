package data

import (
	"context"
	"database/sql"
	"time"

	"shortlink/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(NewData, NewDB, NewLinkCache, NewLinkRepo, NewClickRepo)

// Data holds the shared storage handles: the SQL store and the optional
// Redis projection cache.
type Data struct {
	db     *sql.DB
	rdb    *redis.Client
	driver string
}

// NewData opens the SQL store, runs migrations and connects the optional
// Redis cache. An empty Redis address leaves rdb nil; repositories then
// fall back to uncached reads.
func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	driver := c.Database.Driver
	db, err := sql.Open(driver, c.Database.Source)
	if err != nil {
		return nil, nil, err
	}
	if driver == "sqlite3" {
		// A single writer avoids SQLITE_BUSY under the ingestion workers.
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	if err := RunMigrations(db, driver); err != nil {
		db.Close()
		return nil, nil, err
	}

	var rdb *redis.Client
	if c.Redis != nil && c.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			helper.Warnf("redis unavailable, running without projection cache: %v", err)
			rdb = nil
		}
	}

	d := &Data{db: db, rdb: rdb, driver: driver}

	cleanup := func() {
		helper.Info("closing the data resources")
		if d.rdb != nil {
			if err := d.rdb.Close(); err != nil {
				helper.Error(err)
			}
		}
		if err := d.db.Close(); err != nil {
			helper.Error(err)
		}
	}

	return d, cleanup, nil
}

// NewDB exposes the raw SQL handle for infrastructure components such as
// the outbox forwarder.
func NewDB(d *Data) *sql.DB {
	return d.db
}
