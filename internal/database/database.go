package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/locallibrary/internal/entities"
)

var defaultGenres = []entities.Genre{
	{Name: "Fiction"},
	{Name: "Science Fiction"},
	{Name: "Fantasy"},
	{Name: "Poetry"},
	{Name: "History"},
}

type Database struct {
	DB *gorm.DB
}

// connParams apply to every pooled connection. Transactions begin IMMEDIATE
// and wait up to busy_timeout for the write lock.
const connParams = "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"

func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + connParams
	}
	return dbPath + "?" + connParams
}

func NewDatabase(dbPath string, log *zap.Logger) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Permission{},
		&entities.User{},
		&entities.Author{},
		&entities.Genre{},
		&entities.Book{},
		&entities.BookInstance{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedPermissions(log); err != nil {
		return nil, fmt.Errorf("failed to seed permissions: %w", err)
	}
	if err := database.seedGenres(log); err != nil {
		return nil, fmt.Errorf("failed to seed genres: %w", err)
	}

	log.Info("database initialized", zap.String("path", dbPath))

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedPermissions(log *zap.Logger) error {
	for _, perm := range entities.DefaultPermissions {
		var existing entities.Permission
		result := d.DB.Where("codename = ?", perm.Codename).First(&existing)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			if err := d.DB.Create(&perm).Error; err != nil {
				return fmt.Errorf("failed to create permission %s: %w", perm.Codename, err)
			}
			log.Debug("created permission", zap.String("codename", perm.Codename))
		} else if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// seedGenres only runs against an empty genre table so that genres removed
// by librarians are not brought back on restart.
func (d *Database) seedGenres(log *zap.Logger) error {
	var count int64
	if err := d.DB.Model(&entities.Genre{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, genre := range defaultGenres {
		if err := d.DB.Create(&genre).Error; err != nil {
			return fmt.Errorf("failed to create genre %s: %w", genre.Name, err)
		}
	}
	log.Debug("seeded genres", zap.Int("count", len(defaultGenres)))
	return nil
}
