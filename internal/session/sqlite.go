package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// record is the persisted row; one row per named session.
type record struct {
	Name      string `gorm:"primaryKey"`
	Token     string
	UpdatedAt time.Time
}

func (record) TableName() string {
	return "sessions"
}

// SQLiteStore persists the token in a local SQLite file through gorm.
type SQLiteStore struct {
	db   *gorm.DB
	name string
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(path, name string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	return NewSQLiteStore(db, name)
}

// NewSQLiteStore uses an existing gorm handle.
func NewSQLiteStore(db *gorm.DB, name string) (*SQLiteStore, error) {
	if name == "" {
		name = "default"
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate sessions: %w", err)
	}
	return &SQLiteStore{db: db, name: name}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	var r record
	err := s.db.WithContext(ctx).Where("name = ?", s.name).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	return r.Token, nil
}

func (s *SQLiteStore) Save(ctx context.Context, token string) error {
	r := record{Name: s.name, Token: token, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
	}).Create(&r).Error
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("name = ?", s.name).Delete(&record{}).Error; err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
