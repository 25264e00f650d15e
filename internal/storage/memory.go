package storage

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/lens-assistant/internal/conversation"
	"github.com/easeaico/lens-assistant/internal/types"
)

type memoryRepo struct {
	db *gorm.DB
}

func NewMemoryRepo(db *gorm.DB) conversation.MemoryRepo {
	return &memoryRepo{db: db}
}

func (r *memoryRepo) Upsert(ctx context.Context, fact types.MemoryFact) error {
	record := memoryModel{
		Scope:     fact.Scope,
		Key:       fact.Key,
		Value:     fact.Value,
		UpdatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&record).Error; err != nil {
		return classify(err, "upsert memory "+fact.Scope+"/"+fact.Key)
	}
	return nil
}

func (r *memoryRepo) List(ctx context.Context, scopes ...string) ([]types.MemoryFact, error) {
	if len(scopes) == 0 {
		return nil, nil
	}
	var records []memoryModel
	if err := r.db.WithContext(ctx).
		Where("scope IN ?", scopes).
		Order("scope ASC, key ASC").
		Find(&records).Error; err != nil {
		return nil, classify(err, "query memories")
	}

	results := make([]types.MemoryFact, 0, len(records))
	for _, record := range records {
		results = append(results, types.MemoryFact{
			Scope:     record.Scope,
			Key:       record.Key,
			Value:     record.Value,
			UpdatedAt: record.UpdatedAt,
		})
	}
	return results, nil
}
