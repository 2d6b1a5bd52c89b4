package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// gormStore holds the queries shared by the SQLite and PostgreSQL stores.
type gormStore struct {
	db *gorm.DB
}

func (s *gormStore) migrate() error {
	if err := s.db.AutoMigrate(&Exchange{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *gormStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (s *gormStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

func (s *gormStore) SaveExchange(ctx context.Context, exchange *Exchange) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if exchange.ExchangeID == "" {
		return fmt.Errorf("exchange id is required")
	}
	if err := s.db.WithContext(ctx).Create(exchange).Error; err != nil {
		return fmt.Errorf("failed to create exchange record: %w", err)
	}
	return nil
}

func (s *gormStore) GetExchange(ctx context.Context, exchangeID string) (*Exchange, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var exchange Exchange
	err := s.db.WithContext(ctx).Where("exchange_id = ?", exchangeID).First(&exchange).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrExchangeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange: %w", err)
	}
	return &exchange, nil
}

func (s *gormStore) ListExchanges(ctx context.Context, limit, offset int) ([]Exchange, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	query := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var exchanges []Exchange
	if err := query.Find(&exchanges).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch exchanges: %w", err)
	}
	return exchanges, nil
}

func (s *gormStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	result := s.db.WithContext(ctx).Unscoped().Where("created_at < ?", cutoff).Delete(&Exchange{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune exchanges: %w", result.Error)
	}
	return result.RowsAffected, nil
}
