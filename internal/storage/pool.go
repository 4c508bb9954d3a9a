package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PoolConfig bounds the connection pool. MinConns connections are kept idle,
// MaxConns is the hard ceiling; acquisition past AcquireTimeout fails with
// ErrConnectivity.
type PoolConfig struct {
	URL            string
	MinConns       int
	MaxConns       int
	AcquireTimeout time.Duration
}

// Pool owns the store connections. It is constructed once at process start
// and is the only component that opens physical connections.
type Pool struct {
	db             *sqlx.DB
	acquireTimeout time.Duration
	logger         *slog.Logger
}

func NewPool(cfg PoolConfig, logger *slog.Logger) (*Pool, error) {
	db, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(time.Hour)

	return &Pool{
		db:             db,
		acquireTimeout: cfg.AcquireTimeout,
		logger:         logger,
	}, nil
}

// NewPoolWithDB wraps an already-open handle. The caller keeps ownership of
// the handle's pool limits.
func NewPoolWithDB(db *sqlx.DB, acquireTimeout time.Duration, logger *slog.Logger) *Pool {
	return &Pool{db: db, acquireTimeout: acquireTimeout, logger: logger}
}

// Acquire checks a connection out of the pool, blocking up to the configured
// timeout when the pool is exhausted. The caller must Release it.
func (p *Pool) Acquire(ctx context.Context) (*sqlx.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.db.Connx(acquireCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire: %v", ErrConnectivity, err)
	}
	return conn, nil
}

func (p *Pool) Release(conn *sqlx.Conn) {
	if err := conn.Close(); err != nil {
		p.logger.Warn("releasing connection", "error", err)
	}
}

// WithConn runs fn on an acquired connection and releases it on every exit
// path, including when fn returns an error or panics.
func (p *Pool) WithConn(ctx context.Context, fn func(context.Context, *sqlx.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)

	return fn(ctx, conn)
}

// WithTx runs fn inside a transaction on an acquired connection. The
// transaction is rolled back unless fn returns nil.
func (p *Pool) WithTx(ctx context.Context, fn func(context.Context, *sqlx.Tx) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrConnectivity, err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			p.logger.Warn("rolling back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", MapError(err))
	}
	return nil
}

func (p *Pool) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	return nil
}

func (p *Pool) Close() error {
	return p.db.Close()
}
