package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Varun-1606/quick-cart/internal/port"
)

type stateRecord struct {
	Key       string `gorm:"column:state_key;primaryKey;size:191"`
	Value     []byte `gorm:"column:state_value;not null"`
	ExpiresAt *time.Time
	UpdatedAt time.Time
}

func (stateRecord) TableName() string { return "app_state" }

// PostgresAdapter stores mirrored state in a single Postgres table through GORM.
type PostgresAdapter struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPostgresAdapter(db *gorm.DB) *PostgresAdapter {
	return &PostgresAdapter{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// ConnectPostgres opens a GORM pool and verifies it with a ping.
func ConnectPostgres(ctx context.Context, databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	slog.Default().InfoContext(ctx, "postgres connect completed",
		"module", "storage",
		"layer", "adapter",
		"operation", "connect",
		"outcome", "success",
	)
	return db, nil
}

func (p *PostgresAdapter) EnsureSchema(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(&stateRecord{}); err != nil {
		return fmt.Errorf("migrate app_state: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	var rec stateRecord
	err := p.db.WithContext(ctx).Where("state_key = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, port.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}
	if rec.ExpiresAt != nil && !p.now().Before(*rec.ExpiresAt) {
		return nil, port.ErrStateNotFound
	}
	return rec.Value, nil
}

func (p *PostgresAdapter) Set(ctx context.Context, key string, value []byte) error {
	rec := stateRecord{Key: key, Value: value, UpdatedAt: p.now()}
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"state_value", "expires_at", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) Delete(ctx context.Context, key string) error {
	if err := p.db.WithContext(ctx).Where("state_key = ?", key).Delete(&stateRecord{}).Error; err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var inserted bool
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := p.now()
		if err := tx.Where("state_key = ? AND expires_at IS NOT NULL AND expires_at <= ?", key, now).
			Delete(&stateRecord{}).Error; err != nil {
			return fmt.Errorf("purge expired state: %w", err)
		}

		rec := stateRecord{Key: key, Value: value, UpdatedAt: now}
		if ttl > 0 {
			expiresAt := now.Add(ttl)
			rec.ExpiresAt = &expiresAt
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
		if result.Error != nil {
			return fmt.Errorf("insert state: %w", result.Error)
		}
		inserted = result.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}
