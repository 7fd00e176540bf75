package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// StorageConfig выбор бэкенда: postgres или файловая sqlite
type StorageConfig struct {
	Driver          string        `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	SQLitePath      string        `yaml:"sqlite_path" env-default:"./tmwatch.db"`
	BusyTimeout     time.Duration `yaml:"busy_timeout" env-default:"5s"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"30m"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-default:"postgres"`
	Password string `yaml:"-" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env-default:"tmwatch"`
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"10080"` // минуты, неделя
}

type MigrationsConfig struct {
	Path      string `yaml:"path" env-default:"./migrations"`
	Table     string `yaml:"table" env-default:"schema_migrations"`
	AutoApply bool   `yaml:"auto_apply" env-default:"false"`
}

// RedisConfig кэш товаров и ключи идемпотентности
type RedisConfig struct {
	Enabled        bool          `yaml:"enabled" env-default:"false"`
	Address        string        `yaml:"address" env-default:"localhost:6379"`
	Password       string        `yaml:"-" env:"REDIS_PASSWORD"`
	DB             int           `yaml:"db" env-default:"0"`
	ProductTTL     time.Duration `yaml:"product_ttl" env-default:"5m"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl" env-default:"24h"`

	// сколько ключ остаётся занятым, если запрос не дошёл до Complete/Release
	IdempotencyPendingTTL time.Duration `yaml:"idempotency_pending_ttl" env-default:"1m"`
}

// KafkaConfig публикация событий из outbox
type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled" env-default:"false"`
	Brokers       []string      `yaml:"brokers" env-default:"localhost:9092"`
	Topic         string        `yaml:"topic" env-default:"orders"`
	RelayInterval time.Duration `yaml:"relay_interval" env-default:"500ms"`
	BatchSize     int           `yaml:"batch_size" env-default:"100"`
	Lease         time.Duration `yaml:"lease" env-default:"10s"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}
