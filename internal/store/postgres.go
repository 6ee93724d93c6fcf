package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// kvEntry is one row of the kv_entries table.
type kvEntry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:512"`
	Value     string `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string {
	return "kv_entries"
}

// Postgres stores values in a single kv_entries table through GORM.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres opens dsn and migrates the kv_entries table.
func NewPostgres(dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewPostgresWithDB(db)
}

// NewPostgresWithDB wraps an existing GORM handle and migrates the schema.
func NewPostgresWithDB(db *gorm.DB) (*Postgres, error) {
	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Get(ctx context.Context, key string, dst any) (bool, error) {
	var entry kvEntry
	err := p.db.WithContext(ctx).Where("entry_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(entry.Value), dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (p *Postgres) Set(ctx context.Context, key string, v any) error {
	entry, err := newEntry(key, v)
	if err != nil {
		return err
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, key string, v any) (bool, error) {
	entry, err := newEntry(key, v)
	if err != nil {
		return false, err
	}
	res := p.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create %s: %w", key, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (p *Postgres) Children(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	base := strings.Trim(prefix, "/")

	var entries []kvEntry
	err := p.db.WithContext(ctx).
		Where(`entry_key LIKE ? ESCAPE '\'`, escapeLike(base)+"/%").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read children of %s: %w", prefix, err)
	}

	out := make(map[string]json.RawMessage, len(entries))
	for _, e := range entries {
		if name := childName(base, e.Key); name != "" {
			out[name] = json.RawMessage(e.Value)
		}
	}
	return out, nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if err := p.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&kvEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newEntry(key string, v any) (*kvEntry, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return &kvEntry{Key: key, Value: string(raw), UpdatedAt: time.Now()}, nil
}

var likeReplacer = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string {
	return likeReplacer.Replace(s)
}
