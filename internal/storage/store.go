// Package storage implements the conversation and catalog repositories on
// PostgreSQL through gorm.
package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/easeaico/lens-assistant/internal/catalog"
	"github.com/easeaico/lens-assistant/internal/conversation"
	"github.com/easeaico/lens-assistant/internal/types"
)

// Store holds the DB pool and repositories.
type Store struct {
	db       *gorm.DB
	Sessions conversation.SessionRepo
	Messages conversation.MessageRepo
	Memories conversation.MemoryRepo
	Catalog  catalog.Store
}

// NewStore opens the database, pings it and wires the repositories.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w: %w", types.ErrStorageUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w: %w", types.ErrStorageUnavailable, err)
	}
	return newStore(db), nil
}

func newStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Sessions: NewSessionRepo(db),
		Messages: NewMessageRepo(db),
		Memories: NewMemoryRepo(db),
		Catalog:  NewCatalogRepo(db),
	}
}

// Migrate creates or updates every table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return classify(err, "migrate schema")
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w: %w", types.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
