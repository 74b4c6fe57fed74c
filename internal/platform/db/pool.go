package db

import (
	"context"
	"fmt"
	"time"

	"fxsync/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const healthCheckPeriod = 30 * time.Second

// CreatePoolAndPing opens the pool backing the postgres key-value store and fails unless the
// server answers a ping. A pool is never returned together with an error.
func CreatePoolAndPing(ctx context.Context, cfg config.DbServer) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.GetConnectionStr())
	if err != nil {
		return nil, fmt.Errorf("failed to parse db config: %w", err)
	}
	poolCfg.HealthCheckPeriod = healthCheckPeriod

	log := logrus.WithFields(logrus.Fields{
		"host":      cfg.Host,
		"port":      cfg.Port,
		"db":        cfg.Name,
		"max_conns": poolCfg.MaxConns,
	})

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		log.WithError(err).Error("Postgres did not answer ping")
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	log.Info("Connected to postgres")
	return pool, nil
}
