// Package storage holds the durable backends behind the catalog, the required
// channel set and the user record.
package storage

import (
	"context"
	"fmt"

	"kinobot/internal/catalog"
	"kinobot/internal/config"
	"kinobot/internal/gate"
)

type Backend interface {
	catalog.Repository
	gate.ChannelRepository

	// AddUser records a user who passed the gate. Adding a known user is a no-op.
	AddUser(ctx context.Context, userID int64) error
	CountUsers(ctx context.Context) (int, error)

	Close(ctx context.Context) error
}

var (
	_ Backend = (*File)(nil)
	_ Backend = (*SQLite)(nil)
	_ Backend = (*Mongo)(nil)
	_ Backend = (*Redis)(nil)
)

func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverFile:
		return OpenFile(cfg.Storage.DataDir)
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.Storage.SQLitePath)
	case config.DriverMongo:
		return NewMongo(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
	case config.DriverRedis:
		return NewRedis(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB, cfg.Storage.RedisPrefix)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
