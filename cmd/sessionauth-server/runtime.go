package main

import (
	"context"
	"fmt"

	"github.com/MForofontov/sessionauth"
	"github.com/MForofontov/sessionauth/credentials"
	"github.com/MForofontov/sessionauth/internal/config"
	"github.com/MForofontov/sessionauth/internal/database"
	"github.com/MForofontov/sessionauth/internal/logging"
	"github.com/MForofontov/sessionauth/password"
	"github.com/MForofontov/sessionauth/revocation"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.Load(
		config.WithConfigFile(c.String("config")),
		config.WithDotenv(c.StringSlice("env-file")...),
	)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.Init(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// openStore returns the configured revocation backend and a function that
// releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (revocation.Store, func() error, error) {
	switch cfg.Revocation.Backend {
	case config.BackendRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Revocation.Redis.Addr},
			Password: cfg.Revocation.Redis.Password,
			DB:       cfg.Revocation.Redis.DB,
		})
		store := revocation.NewRedisStore(client, cfg.Revocation.Redis.Prefix)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil

	case config.BackendPostgres:
		db, err := database.Connect(ctx, cfg.Revocation.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return revocation.NewPostgresStore(db), db.Close, nil

	case config.BackendBadger:
		store, err := revocation.OpenBadgerStore(revocation.BadgerOptions{
			Dir:        cfg.Revocation.Badger.Dir,
			InMemory:   cfg.Revocation.Badger.InMemory,
			SyncWrites: cfg.Revocation.Badger.SyncWrites,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		return revocation.NewMemoryStore(), func() error { return nil }, nil
	}
}

func newDirectory(cfg *config.Config) (*credentials.Directory, error) {
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return credentials.NewDirectory(hasher, cfg.Users)
}

func newEngine(cfg *config.Config, store revocation.Store, verifier sessionauth.CredentialVerifier, logger *zap.Logger) (*sessionauth.Engine, error) {
	engineCfg, err := cfg.Engine()
	if err != nil {
		return nil, err
	}

	b := sessionauth.New().
		WithConfig(engineCfg).
		WithRevocationStore(store).
		WithLogger(logger)
	if verifier != nil {
		b.WithCredentialVerifier(verifier)
	}
	if engineCfg.Audit.Enabled {
		b.WithAuditSink(sessionauth.NewZapSink(logger))
	}
	return b.Build()
}
