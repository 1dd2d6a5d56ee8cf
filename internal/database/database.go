package database

import (
	"context"
	"fmt"
	"time"

	"entitlement-api/internal/config"
	"entitlement-api/internal/models"
	"entitlement-api/pkg/logging"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Connections holds the handles opened at startup. Redis is nil when
// REDIS_URL is not set.
type Connections struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// InitDatabase opens the database (and Redis when configured) and migrates tables.
func InitDatabase(cfg *config.Config) (*Connections, error) {
	db, err := OpenDB(cfg.DatabaseURL, cfg.SQLitePath, cfg.Mode == "debug")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	conns := &Connections{DB: db}
	if cfg.RedisURL != "" {
		client, err := OpenRedis(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		conns.Redis = client
	} else {
		logging.Infof("REDIS_URL not set, using in-memory rate limiting")
	}

	return conns, nil
}

// OpenDB connects to PostgreSQL, or to a SQLite file when dsn is empty.
func OpenDB(dsn, sqlitePath string, verbose bool) (*gorm.DB, error) {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	}

	var (
		db  *gorm.DB
		err error
	)
	if dsn == "" {
		// Fallback to SQLite for development
		logging.Infof("Database URL not set, using SQLite at %s", sqlitePath)
		db, err = gorm.Open(sqlite.Open(sqlitePath), gormConfig)
	} else {
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logging.Infof("Database connected successfully")
	return db, nil
}

// OpenRedis parses redisURL and pings the server.
func OpenRedis(redisURL string) (*redis.Client, error) {
	logging.Infof("Connecting to Redis: %s", maskRedisURL(redisURL))

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		logging.Errorf("Failed to parse Redis URL: %v", err)
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logging.Errorf("Failed to connect to Redis: %v", err)
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Infof("Redis connected successfully")
	return client, nil
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if len(url) > 20 {
		return url[:10] + "***" + url[len(url)-10:]
	}
	return "***"
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Subscription{},
	)
}

// Close closes database connections
func (c *Connections) Close() error {
	if sqlDB, err := c.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logging.Errorf("Failed to close database: %v", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logging.Errorf("Failed to close Redis: %v", err)
		}
	}

	return nil
}
