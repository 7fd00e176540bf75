package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/linemk/tm-watch/internal/config"
	"github.com/linemk/tm-watch/internal/outbox"
	"github.com/linemk/tm-watch/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DB      *sql.DB
	Dialect storage.Dialect
	Redis   *redis.Client // nil, если redis выключен
	Kafka   *kafka.Writer // nil, если kafka выключена
}

// NewApp создаёт новый экземпляр App: подключение к БД, миграции и внешние клиенты
func NewApp(log *slog.Logger, cfg *config.Config) (*App, error) {
	dialect, err := storage.ParseDialect(cfg.Storage.Driver)
	if err != nil {
		return nil, err
	}

	db, err := openDB(dialect, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Logger:  log,
		DB:      db,
		Dialect: dialect,
	}

	if cfg.Migrations.AutoApply {
		path := filepath.Join(cfg.Migrations.Path, string(dialect))
		if err := storage.RunMigrations(db, dialect, path, cfg.Migrations.Table); err != nil {
			app.Close()
			return nil, err
		}
		log.Info("migrations applied", slog.String("path", path))
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// кэш и идемпотентность переживают недоступность redis, поэтому только предупреждаем
			log.Warn("redis is unavailable at startup", slog.String("address", cfg.Redis.Address), slog.Any("error", err))
		}
		app.Redis = rdb
	}

	if cfg.Kafka.Enabled {
		app.Kafka = outbox.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	return app, nil
}

func openDB(dialect storage.Dialect, cfg *config.Config) (*sql.DB, error) {
	switch dialect {
	case storage.DialectSQLite:
		return storage.OpenSQLite(cfg.Storage.SQLitePath, cfg.Storage.BusyTimeout)
	default:
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("DB_PASSWORD environment variable is not set")
		}
		// реализуем подключение к БД через DSN
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Name,
		)
		return storage.OpenPostgres(dsn, storage.PoolOptions{
			MaxOpenConns:    cfg.Storage.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.ConnMaxLifetime,
		})
	}
}

// Relay возвращает публикатор outbox или nil, если kafka выключена
func (a *App) Relay() *outbox.Relay {
	if a.Kafka == nil {
		return nil
	}
	store := storage.NewOutboxRepository(a.DB, a.Dialect)
	dispatcher := outbox.NewDispatcher(a.Logger, a.Kafka)
	return outbox.NewRelay(a.Logger, store, dispatcher, a.Config.Kafka.BatchSize, a.Config.Kafka.RelayInterval, a.Config.Kafka.Lease)
}

// Close освобождает все ресурсы приложения
func (a *App) Close() {
	if a.Kafka != nil {
		if err := a.Kafka.Close(); err != nil {
			a.Logger.Error("failed to close kafka writer", slog.Any("error", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("failed to close database", slog.Any("error", err))
	}
}
