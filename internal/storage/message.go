package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/lens-assistant/internal/conversation"
	"github.com/easeaico/lens-assistant/internal/types"
)

type messageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) conversation.MessageRepo {
	return &messageRepo{db: db}
}

// Append inserts msg. The session row is locked so concurrent appends to one
// session get strictly increasing timestamps.
func (r *messageRepo) Append(ctx context.Context, msg *types.ChatMessage) error {
	if !validID(msg.SessionID) {
		return notFound("session", msg.SessionID)
	}
	var record chatMessageModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session chatSessionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", msg.SessionID).
			Take(&session).Error; err != nil {
			return err
		}

		var last chatMessageModel
		if err := tx.Where("session_id = ?", msg.SessionID).
			Order("created_at DESC").
			Limit(1).
			Find(&last).Error; err != nil {
			return err
		}

		createdAt := nextTimestamp(last.CreatedAt, time.Now())
		record = chatMessageModel{
			ID:        uuid.NewString(),
			SessionID: msg.SessionID,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return classify(err, "insert chat message")
	}
	*msg = messageFromModel(record)
	return nil
}

func (r *messageRepo) Get(ctx context.Context, sessionID, id string) (*types.ChatMessage, error) {
	if !validID(sessionID) || !validID(id) {
		return nil, notFound("message", id)
	}
	var record chatMessageModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND session_id = ?", id, sessionID).
		Take(&record).Error; err != nil {
		return nil, classify(err, "message "+id)
	}
	msg := messageFromModel(record)
	return &msg, nil
}

func (r *messageRepo) UpdateContent(ctx context.Context, sessionID, id, content string) (*types.ChatMessage, error) {
	if !validID(sessionID) || !validID(id) {
		return nil, notFound("message", id)
	}
	result := r.db.WithContext(ctx).
		Model(&chatMessageModel{}).
		Where("id = ? AND session_id = ?", id, sessionID).
		Updates(map[string]any{
			"content":    content,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, classify(result.Error, "update chat message")
	}
	if result.RowsAffected == 0 {
		return nil, notFound("message", id)
	}
	return r.Get(ctx, sessionID, id)
}

func (r *messageRepo) Delete(ctx context.Context, sessionID, id string) error {
	if !validID(sessionID) || !validID(id) {
		return notFound("message", id)
	}
	result := r.db.WithContext(ctx).
		Where("id = ? AND session_id = ?", id, sessionID).
		Delete(&chatMessageModel{})
	if result.Error != nil {
		return classify(result.Error, "delete chat message")
	}
	if result.RowsAffected == 0 {
		return notFound("message", id)
	}
	return nil
}

func (r *messageRepo) List(ctx context.Context, sessionID string) ([]types.ChatMessage, error) {
	if !validID(sessionID) {
		return nil, notFound("session", sessionID)
	}
	var records []chatMessageModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, classify(err, "query chat messages")
	}
	return messagesFromModels(records), nil
}

func (r *messageRepo) Recent(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error) {
	if !validID(sessionID) {
		return nil, notFound("session", sessionID)
	}
	var records []chatMessageModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, classify(err, "query chat messages")
	}

	results := messagesFromModels(records)
	// Oldest -> newest
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

// nextTimestamp returns now, or the smallest Postgres-representable instant
// after last when the clock has not advanced past it.
func nextTimestamp(last, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if last.IsZero() || now.After(last) {
		return now
	}
	return last.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
}

func messagesFromModels(records []chatMessageModel) []types.ChatMessage {
	results := make([]types.ChatMessage, 0, len(records))
	for _, record := range records {
		results = append(results, messageFromModel(record))
	}
	return results
}

func messageFromModel(model chatMessageModel) types.ChatMessage {
	return types.ChatMessage{
		ID:        model.ID,
		SessionID: model.SessionID,
		Role:      model.Role,
		Content:   model.Content,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
