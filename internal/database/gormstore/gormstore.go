// Package gormstore implements database.Store with GORM on SQLite or MySQL.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	defaultSQLitePath = "data/attendance.db"
	mysqlDuplicateKey = 1062
)

// Store is a GORM-backed database.Store.
type Store struct {
	db *gorm.DB
}

func newGormLogger() logger.Interface {
	return logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// sqliteDSN enables foreign keys and creates the parent directory of file databases.
func sqliteDSN(url string) (string, error) {
	if url == "" {
		url = defaultSQLitePath
	}
	path, _, _ := strings.Cut(url, "?")
	if path != ":memory:" && !strings.HasPrefix(path, "file::memory:") {
		if err := os.MkdirAll(filepath.Dir(strings.TrimPrefix(path, "file:")), 0o755); err != nil {
			return "", fmt.Errorf("create database directory: %w", err)
		}
	}
	if strings.Contains(url, "_foreign_keys") || strings.Contains(url, "_fk=") {
		return url, nil
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "_foreign_keys=on", nil
}

// mysqlDSN forces the connection settings the store relies on.
func mysqlDSN(url string) (string, error) {
	c, err := mysqldriver.ParseDSN(url)
	if err != nil {
		return "", fmt.Errorf("parse MySQL DSN: %w", err)
	}
	c.ParseTime = true
	c.Loc = time.UTC
	// Matched rather than changed rows, so an unchanged update is not reported as missing.
	c.ClientFoundRows = true
	if c.Params == nil {
		c.Params = map[string]string{}
	}
	if _, ok := c.Params["charset"]; !ok {
		c.Params["charset"] = "utf8mb4"
	}
	return c.FormatDSN(), nil
}

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite:
		dsn, err := sqliteDSN(cfg.URL)
		if err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	case DriverMySQL:
		if cfg.URL == "" {
			return nil, errors.New("database URL is required")
		}
		dsn, err := mysqlDSN(cfg.URL)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// Open connects and migrates the schema.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (database.Store, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(d, &gorm.Config{Logger: newGormLogger(), TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying DB: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// One connection keeps in-memory databases shared and serialises writers.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.WithContext(ctx).AutoMigrate(&identityModel{}, &attendanceModel{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate %s database: %w", cfg.Driver, err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get underlying DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("closing database connection: %w", err)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldriver.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateKey
}

func requireAffected(tx *gorm.DB, what string, id int64) error {
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", what, id, database.ErrNotFound)
	}
	return nil
}

func init() {
	database.RegisterBackend(DriverSQLite, Open)
	database.RegisterBackend(DriverMySQL, Open)
}
