package repository

import (
	"context"
	"time"

	"go-pos-checkout/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type outboxRepo struct {
	db *gorm.DB
}

func NewOutboxRepo(db *gorm.DB) OutboxRepository {
	return &outboxRepo{db}
}

func (r *outboxRepo) Enqueue(ctx context.Context, event *model.OutboxEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = model.OutboxPending
	}
	return translate(r.db.WithContext(ctx).Create(event).Error)
}

func (r *outboxRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", model.OutboxPending, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *outboxRepo) MarkLedgerRecorded(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Update("ledger_recorded", true).Error
}

func (r *outboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":       model.OutboxProcessed,
		"processed_at": at,
		"last_error":   "",
	})
}

func (r *outboxRepo) MarkAttemptFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string, nextAttemptAt time.Time, dead bool) error {
	status := model.OutboxPending
	if dead {
		status = model.OutboxDead
	}
	return r.transition(ctx, id, map[string]interface{}{
		"status":          status,
		"attempts":        attempts,
		"last_error":      lastErr,
		"next_attempt_at": nextAttemptAt,
	})
}

// transition updates a still-pending event. A concurrent processor that got
// there first leaves zero matching rows.
func (r *outboxRepo) transition(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id = ? AND status = ?", id, model.OutboxPending).
		Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}
