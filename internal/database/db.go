package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shop-system/config"
	"shop-system/internal/database/models"
)

// NewConnection opens Postgres when cfg.URL is set and a local SQLite file
// otherwise.
func NewConnection(cfg config.DBConfig) (*gorm.DB, error) {
	if cfg.URL != "" {
		return open(postgres.Open(cfg.URL), cfg.LogMode, 20)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	log.Printf("DATABASE_URL not set, using sqlite at %s", cfg.SQLitePath)
	return OpenSQLite(SQLiteFileDSN(cfg.SQLitePath), cfg.LogMode)
}

// OpenSQLite pins the pool to a single connection: SQLite has no row locks,
// so write transactions are serialized at the pool instead.
func OpenSQLite(dsn string, logMode bool) (*gorm.DB, error) {
	db, err := open(sqlite.Open(dsn), logMode, 1)
	if err != nil {
		return nil, err
	}
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

func SQLiteFileDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000", path)
}

func SQLiteMemoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
}

func open(dialector gorm.Dialector, logMode bool, maxOpen int) (*gorm.DB, error) {
	gormLogger := logger.Default
	if !logMode {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(min(5, maxOpen))
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Reader wraps the pool behind db for hand-written read queries. Both
// handles share connections, so report reads see committed writes.
func Reader(db *gorm.DB) (*sqlx.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlx.NewDb(sqlDB, driverName(db)), nil
}

// driverName maps gorm dialect names onto names sqlx knows the bind
// style of.
func driverName(db *gorm.DB) string {
	name := db.Dialector.Name()
	switch {
	case strings.HasPrefix(name, "postgres"):
		return "pgx"
	case name == "sqlite":
		return "sqlite3"
	default:
		return name
	}
}
