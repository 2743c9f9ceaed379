package utils

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

const pgxDriver = "pgx"

// DBPool sizes the database/sql pool behind the routing asset store. Each
// inbound call costs one small read, so the pool stays small.
type DBPool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration

	// DialTimeout bounds the startup ping.
	DialTimeout time.Duration
}

var defaultDBPool = DBPool{
	MaxOpen:     10,
	MaxIdle:     5,
	MaxLifetime: 30 * time.Minute,
	MaxIdleTime: 5 * time.Minute,
	DialTimeout: 5 * time.Second,
}

// orDefault fills every unset field from defaultDBPool.
func (p DBPool) orDefault() DBPool {
	out := defaultDBPool
	if p.MaxOpen > 0 {
		out.MaxOpen = p.MaxOpen
	}
	if p.MaxIdle > 0 {
		out.MaxIdle = p.MaxIdle
	}
	if p.MaxLifetime > 0 {
		out.MaxLifetime = p.MaxLifetime
	}
	if p.MaxIdleTime > 0 {
		out.MaxIdleTime = p.MaxIdleTime
	}
	if p.DialTimeout > 0 {
		out.DialTimeout = p.DialTimeout
	}
	return out
}

func (p DBPool) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.MaxOpen)
	db.SetMaxIdleConns(p.MaxIdle)
	db.SetConnMaxLifetime(p.MaxLifetime)
	db.SetConnMaxIdleTime(p.MaxIdleTime)
}

// OpenPostgres connects to the asset database through pgx's database/sql
// driver and fails startup if the server does not answer a ping within
// DialTimeout. The dsn carries the password: keep it out of logs.
func OpenPostgres(ctx context.Context, dsn string, pool DBPool) (*sql.DB, error) {
	pool = pool.orDefault()

	db, err := sql.Open(pgxDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	pool.apply(db)

	pingCtx, cancel := context.WithTimeout(ctx, pool.DialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: unreachable: %w", err)
	}
	return db, nil
}
