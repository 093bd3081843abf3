package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/timmy/memegen/internal/config"
	"github.com/timmy/memegen/internal/domain"
	"github.com/timmy/memegen/internal/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects the record store selected by cfg.Driver.
// Parameters:
//   - ctx: context bounding the initial connection.
//   - cfg: database configuration including driver and connection settings.
// Returns:
//   - MemeStore: connected store.
//   - error: non-nil if the backend is unreachable or migrations fail.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (MemeStore, error) {
	logger.Info("[DB] Initializing record store with driver: %q", cfg.Driver)

	if cfg.Driver == "mongodb" {
		client, err := ConnectMongo(ctx, cfg.URI, cfg.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		store, err := NewMongoMemeStore(ctx, client, client.Database(cfg.Name).Collection("memes"))
		if err != nil {
			client.Disconnect(context.Background())
			return nil, err
		}
		return store, nil
	}

	db, err := InitDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewGormMemeStore(db), nil
}

// InitDB initializes the SQL database connection and runs migrations.
// Parameters:
//   - cfg: database configuration including driver and connection settings.
// Returns:
//   - *gorm.DB: initialized database handle.
//   - error: non-nil if connection or migration fails.
func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var db *gorm.DB
	var err error

	switch cfg.Driver {
	case "postgres":
		db, err = initPostgres(cfg, gormConfig)
	case "sqlite", "":
		db, err = initSQLite(cfg, gormConfig)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&domain.Meme{}); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return db, nil
}

func initPostgres(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	// Simple protocol keeps transaction poolers working.
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	}), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to PostgreSQL: %v", domain.ErrPersistenceUnavailable, err)
	}
	return db, nil
}

func initSQLite(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	path := cfg.Path
	if path == "" {
		path = "./data/memes.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to SQLite: %v", domain.ErrPersistenceUnavailable, err)
	}

	if path != ":memory:" {
		db.Exec("PRAGMA journal_mode=WAL")
	} else {
		// every pooled connection would otherwise get its own empty database
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	return db, nil
}

// ConnectMongo opens a connection and verifies it with a ping.
// The caller owns the client and must Disconnect it.
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("%w: mongo connect: %v", domain.ErrPersistenceUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: mongo ping: %v", domain.ErrPersistenceUnavailable, err)
	}
	return client, nil
}
