// platform.go: read-only access to the platform database, which owns
// datasets, dataset images, and users. The labeler never writes here.
package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/conf"
	"github.com/dice-v3/mvp-vision-ai-labeler-sub001/internal/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dataset is a platform-owned dataset backing one labeling project.
type Dataset struct {
	ID          uint   `gorm:"primaryKey"`
	ProjectID   uint   `gorm:"index:idx_datasets_project"`
	Name        string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DatasetImage is one image within a dataset, as the platform records it.
type DatasetImage struct {
	ID          uint   `gorm:"primaryKey"`
	DatasetID   uint   `gorm:"index:idx_dataset_images_dataset"`
	ProjectID   uint   `gorm:"index:idx_dataset_images_project"`
	FileName    string `gorm:"size:512"`
	StoragePath string `gorm:"size:1024"`
	Width       int
	Height      int
	CreatedAt   time.Time
}

// User is a platform identity. The labeler trusts its ID as the lock and
// annotation owner key.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:64;uniqueIndex"`
	Name      string `gorm:"size:255"`
	Email     string `gorm:"size:255"`
	Role      string `gorm:"size:32"`
	CreatedAt time.Time
}

// PlatformInterface exposes the read-only platform lookups the core needs.
type PlatformInterface interface {
	Open() error
	Close() error
	GetDataset(ctx context.Context, id uint) (*Dataset, error)
	ListProjectImages(ctx context.Context, projectID uint) ([]DatasetImage, error)
	GetUser(ctx context.Context, userID string) (*User, error)
}

// PlatformStore implements PlatformInterface over GORM.
type PlatformStore struct {
	DB       *gorm.DB
	Settings *conf.Settings
}

// NewPlatform creates a platform store instance based on the provided
// configuration.
func NewPlatform(settings *conf.Settings) (PlatformInterface, error) {
	db := &settings.Database.Platform
	if !db.SQLite.Enabled && !db.MySQL.Enabled {
		return nil, errors.Newf("no database backend enabled for platform store").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &PlatformStore{Settings: settings}, nil
}

// Open connects to the platform database. No migration runs here; the
// schema is owned by the platform service.
func (ps *PlatformStore) Open() error {
	cfg := &ps.Settings.Database.Platform
	var err error
	var db *gorm.DB
	if cfg.SQLite.Enabled {
		db, err = gorm.Open(sqlite.Open(cfg.SQLite.Path), &gorm.Config{Logger: createGormLogger()})
	} else {
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.MySQL.Username, cfg.MySQL.Password, cfg.MySQL.Host, cfg.MySQL.Port, cfg.MySQL.Database)
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: createGormLogger()})
	}
	if err != nil {
		return fmt.Errorf("failed to open platform database: %w", err)
	}
	ps.DB = db
	return nil
}

// Close closes the platform database connection.
func (ps *PlatformStore) Close() error {
	if ps.DB == nil {
		return nil
	}
	sqlDB, err := ps.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDataset retrieves a dataset by ID.
func (ps *PlatformStore) GetDataset(ctx context.Context, id uint) (*Dataset, error) {
	var dataset Dataset
	if err := ps.DB.WithContext(ctx).First(&dataset, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDatasetNotFound
		}
		return nil, fmt.Errorf("getting dataset %d: %w", id, err)
	}
	return &dataset, nil
}

// ListProjectImages returns the platform image metadata for a project, used
// by the export serializer for image dimensions and file names.
func (ps *PlatformStore) ListProjectImages(ctx context.Context, projectID uint) ([]DatasetImage, error) {
	var images []DatasetImage
	err := ps.DB.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("listing images for project %d: %w", projectID, err)
	}
	return images, nil
}

// GetUser retrieves a user by its opaque identifier.
func (ps *PlatformStore) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	err := ps.DB.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user %s: %w", userID, err)
	}
	return &user, nil
}
