package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

// Entry is one stored value.
type Entry struct {
	Name      string `gorm:"primary_key;size:255"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "kv_entries"
}

// Gorm stores values in a SQL table through jinzhu/gorm.
type Gorm struct {
	db *gorm.DB
}

// OpenGorm connects with the given dialect ("sqlite3" or "postgres") and
// migrates the entries table.
func OpenGorm(dialect, dsn string) (*Gorm, error) {
	db, err := gorm.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", dialect, err)
	}
	if dialect == "sqlite3" {
		// Every pooled connection to ":memory:" would otherwise see its own
		// empty database.
		db.DB().SetMaxOpenConns(1)
	}
	return NewGorm(db)
}

// NewGorm wraps an existing connection.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&Entry{}).Error; err != nil {
		return nil, fmt.Errorf("migrate kv_entries: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) Get(_ context.Context, key string) (string, error) {
	var e Entry
	err := g.db.Where("name = ?", key).First(&e).Error
	if gorm.IsRecordNotFoundError(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return e.Value, nil
}

func (g *Gorm) Set(_ context.Context, key, value string) error {
	e := Entry{Name: key, Value: value}
	if err := g.db.Save(&e).Error; err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (g *Gorm) Delete(_ context.Context, key string) error {
	if err := g.db.Where("name = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (g *Gorm) Close() error {
	return g.db.Close()
}
