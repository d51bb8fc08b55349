package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

var errTxRequired = errors.New("outbox: transaction required")

// Repository reads and writes outbox_events. Methods that take a *gorm.DB
// run on the caller's transaction.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errTxRequired
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return tx.Create(&event).Error
}

func pending(q *gorm.DB) *gorm.DB {
	return q.Where("published_at IS NULL")
}

// Pending lists undelivered rows, oldest first.
func (r *Repository) Pending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := pending(r.db.WithContext(ctx)).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Backlog counts rows still waiting for delivery.
func (r *Repository) Backlog(ctx context.Context) (int64, error) {
	var n int64
	err := pending(r.db.WithContext(ctx).Model(&models.OutboxEvent{})).Count(&n).Error
	return n, err
}

// Claim locks up to limit pending rows with attempts left. On Postgres other
// publishers skip the locked rows instead of waiting on them.
func (r *Repository) Claim(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errTxRequired
	}
	q := pending(tx)
	if maxAttempts > 0 {
		q = q.Where("attempt_count < ?", maxAttempts)
	}
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var rows []models.OutboxEvent
	err := q.Order("created_at ASC, id ASC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublished(tx *gorm.DB, id uuid.UUID) error {
	return r.update(tx, id, map[string]any{"published_at": time.Now().UTC()})
}

// RecordFailure bumps the attempt count and keeps the row pending.
func (r *Repository) RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error {
	return r.update(tx, id, map[string]any{
		"last_error":    cause.Error(),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

// Retire closes a dead-lettered row. The attempt count is pinned to
// attempts so the row never qualifies for Claim again.
func (r *Repository) Retire(tx *gorm.DB, id uuid.UUID, cause error, attempts int) error {
	updates := map[string]any{
		"attempt_count": attempts,
		"published_at":  time.Now().UTC(),
	}
	if cause != nil {
		updates["last_error"] = cause.Error()
	}
	return r.update(tx, id, updates)
}

// Requeue makes a retired row eligible for delivery again.
func (r *Repository) Requeue(tx *gorm.DB, id uuid.UUID) error {
	return r.update(tx, id, map[string]any{
		"attempt_count": 0,
		"published_at":  nil,
		"last_error":    nil,
	})
}

func (r *Repository) update(tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	if tx == nil {
		return errTxRequired
	}
	res := tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
