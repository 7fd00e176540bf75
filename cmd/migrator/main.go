package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/linemk/tm-watch/internal/config"
	"github.com/linemk/tm-watch/internal/storage"
)

// buildQueryDSN собирает DSN для подключения к postgres
func buildQueryDSN(dbCfg config.DatabaseConfig, dbPassword string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		dbCfg.User, dbPassword, dbCfg.Host, dbCfg.Port, dbCfg.Name,
	)
}

// listTablesQuery запрос списка таблиц для каждого бэкенда
var listTablesQuery = map[storage.Dialect]string{
	storage.DialectPostgres: `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name`,
	storage.DialectSQLite: `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`,
}

func main() {
	var migrationsPathFlag string
	flag.StringVar(&migrationsPathFlag, "migrations-path", "", "path to migration files (without driver subdirectory)")

	cfg := config.MustLoad()

	dialect, err := storage.ParseDialect(cfg.Storage.Driver)
	if err != nil {
		log.Fatal(err)
	}

	migrationsPath := cfg.Migrations.Path
	if migrationsPathFlag != "" {
		migrationsPath = migrationsPathFlag
	}
	migrationsPath = filepath.Join(migrationsPath, string(dialect))

	var db *sql.DB
	switch dialect {
	case storage.DialectSQLite:
		log.Printf("Using sqlite database: %s", cfg.Storage.SQLitePath)
		db, err = storage.OpenSQLite(cfg.Storage.SQLitePath, cfg.Storage.BusyTimeout)
	default:
		dbPassword := GetEnv("DB_PASSWORD", cfg.Database.Password)
		if dbPassword == "" {
			log.Fatal("DB_PASSWORD environment variable is required")
		}
		log.Printf("Using postgres database: %s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
		db, err = storage.OpenPostgres(buildQueryDSN(cfg.Database, dbPassword), storage.PoolOptions{MaxOpenConns: 1, MaxIdleConns: 1})
	}
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db, dialect, migrationsPath, cfg.Migrations.Table); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	log.Printf("Migrations from %s applied successfully", migrationsPath)

	rows, err := db.Query(listTablesQuery[dialect])
	if err != nil {
		log.Fatalf("failed to query tables: %v", err)
	}
	defer rows.Close()

	fmt.Println("Current tables in the database:")
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			log.Fatalf("failed to scan row: %v", err)
		}
		fmt.Println(" -", tableName)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("error reading rows: %v", err)
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := lookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Обертка для os.LookupEnv, чтобы можно было легко подменить в тестах
var lookupEnv = os.LookupEnv
