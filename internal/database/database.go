package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/richardliu001/payment-intents/internal/config"
	"github.com/richardliu001/payment-intents/internal/model"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Pool owns the process-wide connection pool. It is opened once at startup
// and drained by Close at shutdown.
type Pool struct {
	sqlDB *sql.DB
	gdb   *gorm.DB
	log   *zap.SugaredLogger
}

// connConfig parses the DSN in either form and applies the separate password.
func connConfig(cfg config.PostgresConfig) (*pgx.ConnConfig, error) {
	cc, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.Password != "" {
		cc.Password = cfg.Password
	}
	return cc, nil
}

// Open connects through the pgx stdlib driver and hands the pool to gorm.
func Open(cfg config.PostgresConfig, log *zap.SugaredLogger) (*Pool, error) {
	cc, err := connConfig(cfg)
	if err != nil {
		return nil, err
	}
	sqlDB := stdlib.OpenDB(*cc)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{PrepareStmt: true})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return &Pool{sqlDB: sqlDB, gdb: gdb, log: log}, nil
}

// Wrap builds a Pool around an existing gorm handle (tests, alternative dialects).
func Wrap(gdb *gorm.DB, log *zap.SugaredLogger) (*Pool, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	return &Pool{sqlDB: sqlDB, gdb: gdb, log: log}, nil
}

// Gorm returns the gorm handle shared by every request.
func (p *Pool) Gorm() *gorm.DB { return p.gdb }

// Migrate creates or updates the three tables owned by this service.
func (p *Pool) Migrate() error {
	return Migrate(p.gdb)
}

// Migrate applies the schema to any gorm handle.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&model.PaymentIntent{}, &model.IdempotencyRecord{}, &model.OutboxEvent{})
}

// Health pings the database and reports pool statistics.
func (p *Pool) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := p.sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		p.log.Errorf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := p.sqlDB.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()

	if dbStats.MaxOpenConnections > 0 && dbStats.InUse >= dbStats.MaxOpenConnections {
		stats["message"] = "The database pool is exhausted."
	} else if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}
	return stats
}

// Close drains the pool. In-flight queries finish before connections close.
func (p *Pool) Close() error {
	p.log.Info("closing database pool")
	return p.sqlDB.Close()
}
