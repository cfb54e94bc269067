package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wallet/config"
	"wallet/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Database представляет подключение к базе данных
type Database struct {
	DB     *gorm.DB
	driver string
}

// gormWriter направляет сообщения GORM в zerolog
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}

func newGormLogger() logger.Interface {
	return logger.New(gormWriter{}, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// NewDatabase создает новое подключение к базе данных
func NewDatabase(cfg *config.Config) (*Database, error) {
	switch cfg.DB.Driver {
	case "sqlite":
		db, err := OpenSQLite(cfg.DB.Path)
		if err != nil {
			return nil, err
		}
		return &Database{DB: db, driver: "sqlite"}, nil
	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{Logger: newGormLogger(), TranslateError: true})
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
		}

		// Настраиваем пул соединений
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("ошибка получения пула соединений: %w", err)
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)

		return &Database{DB: db, driver: "postgres"}, nil
	default:
		return nil, fmt.Errorf("неизвестный драйвер базы данных: %q", cfg.DB.Driver)
	}
}

// OpenSQLite открывает базу SQLite с одним соединением.
// Путь может быть файлом или URI вида file:name?mode=memory&cache=shared.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: newGormLogger(), TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия sqlite: %w", err)
	}

	// SQLite допускает одного писателя
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	return db, nil
}

// Migrate приводит схему к актуальному состоянию.
// Для PostgreSQL применяются SQL-миграции, для SQLite автоматическая миграция моделей.
func (d *Database) Migrate(cfg *config.Config) error {
	if d.driver == "postgres" {
		return RunMigrations(cfg.DB.URL())
	}
	return AutoMigrate(d.DB)
}

// RunMigrations выполняет встроенные SQL миграции для PostgreSQL
func RunMigrations(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка чтения миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("ошибка создания миграции: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка выполнения миграций: %w", err)
	}
	return nil
}

// AutoMigrate выполняет автоматическую миграцию моделей
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Card{},
		&models.Transaction{},
	)
	if err != nil {
		return fmt.Errorf("ошибка автоматической миграции: %w", err)
	}
	return nil
}

// Ping проверяет доступность базы данных
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close закрывает подключение к базе данных
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
