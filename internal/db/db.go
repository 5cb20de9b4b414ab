package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finance/internal/config"
	"finance/internal/models"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the database selected by cfg.Driver and makes sure the tables exist.
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath, cfg.LogMode)
	default:
		return OpenPostgres(cfg.PostgresDSN(), cfg.LogMode)
	}
}

// OpenPostgres connects through lib/pq and hands the pool to gorm.
func OpenPostgres(dsn string, logMode bool) (*gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err = sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if err = createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig(logMode))
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error opening gorm: %w", err)
	}
	return db, nil
}

// OpenSQLite opens a local database file, or an in-memory one for ":memory:" style DSNs.
func OpenSQLite(path string, logMode bool) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." && !isMemory(path) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig(logMode))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.AutoMigrate(&models.Transaction{}, &models.Setting{}); err != nil {
		return nil, fmt.Errorf("error creating tables: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormConfig(logMode bool) *gorm.Config {
	gormLogger := logger.Default
	if !logMode {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}
	return &gorm.Config{
		Logger:  gormLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}

// createTables mirrors the schema of the hosted project. Row level security is
// managed there; the API always filters by user_id itself.
func createTables(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			type VARCHAR(16) NOT NULL,
			amount NUMERIC(14,2) NOT NULL,
			date TIMESTAMPTZ NOT NULL,
			user_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ,
			CONSTRAINT valid_transaction_type CHECK (type IN ('income', 'outcome')),
			CONSTRAINT positive_amount CHECK (amount > 0)
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_created_at ON transactions(user_id, created_at);

		CREATE TABLE IF NOT EXISTS settings (
			key VARCHAR(64) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	_, err := db.Exec(query)
	return err
}
