package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easeaico/lens-assistant/internal/conversation"
	"github.com/easeaico/lens-assistant/internal/types"
)

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) conversation.SessionRepo {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *types.ChatSession) error {
	if session.Title == "" {
		session.Title = types.DefaultSessionTitle
	}
	now := time.Now().UTC()
	record := chatSessionModel{
		ID:        uuid.NewString(),
		Title:     session.Title,
		Language:  string(session.Language),
		Summary:   session.Summary,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return classify(err, "insert session")
	}
	*session = sessionFromModel(record)
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*types.ChatSession, error) {
	if !validID(id) {
		return nil, notFound("session", id)
	}
	var record chatSessionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error; err != nil {
		return nil, classify(err, "session "+id)
	}
	session := sessionFromModel(record)
	return &session, nil
}

func (r *sessionRepo) Update(ctx context.Context, session *types.ChatSession) error {
	if !validID(session.ID) {
		return notFound("session", session.ID)
	}
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&chatSessionModel{}).
		Where("id = ?", session.ID).
		Updates(map[string]any{
			"title":      session.Title,
			"language":   string(session.Language),
			"summary":    session.Summary,
			"updated_at": now,
		})
	if result.Error != nil {
		return classify(result.Error, "update session")
	}
	if result.RowsAffected == 0 {
		return notFound("session", session.ID)
	}
	session.UpdatedAt = now
	return nil
}

// Delete removes the session, its messages and its chat-scoped memory in one
// transaction.
func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("session", id)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&chatMessageModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("scope = ?", types.ChatScope(id)).Delete(&memoryModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&chatSessionModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return classify(err, "delete session "+id)
	}
	return nil
}

func (r *sessionRepo) List(ctx context.Context, limit int) ([]types.ChatSession, error) {
	var records []chatSessionModel
	if err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, classify(err, "query sessions")
	}

	results := make([]types.ChatSession, 0, len(records))
	for _, record := range records {
		results = append(results, sessionFromModel(record))
	}
	return results, nil
}

func sessionFromModel(model chatSessionModel) types.ChatSession {
	return types.ChatSession{
		ID:        model.ID,
		Title:     model.Title,
		Language:  types.Lang(model.Language),
		Summary:   model.Summary,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
