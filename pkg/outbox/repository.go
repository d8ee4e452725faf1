package outbox

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
)

var errTxRequired = errors.New("outbox: transaction required")

// Repository stores outbox rows. Writes happen on the caller's transaction so
// an event commits or rolls back with the change that produced it.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Create(&event).Error
}

func unpublished(db *gorm.DB) *gorm.DB {
	return db.Where("published_at IS NULL")
}

func withAttemptsBelow(max int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("attempt_count < ?", max)
	}
}

func byID(id uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.OutboxEvent{}).Where("id = ?", id)
	}
}

// FetchUnpublishedForPublish locks the oldest publishable rows with SKIP
// LOCKED, so concurrent publishers split the backlog.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errTxRequired
	}
	var rows []models.OutboxEvent
	err := tx.
		Scopes(unpublished, withAttemptsBelow(maxAttempts)).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Order("created_at, id").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Scopes(byID(id)).Update("published_at", r.now()).Error
}

func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Scopes(byID(id)).Updates(map[string]any{
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"last_error":    cause.Error(),
	}).Error
}

// MarkTerminalTx sets attempt_count to terminalAttempts, which takes the row
// out of every future fetch.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Scopes(byID(id)).Updates(map[string]any{
		"attempt_count": terminalAttempts,
		"last_error":    cause.Error(),
	}).Error
}

// DeletePublishedBefore removes rows published before cutoff and terminal rows
// created before cutoff. A nil tx runs on the repository's own handle.
func (r *Repository) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	res := conn.WithContext(ctx).
		Where("published_at < @cutoff OR (published_at IS NULL AND attempt_count >= @terminal AND created_at < @cutoff)",
			sql.Named("cutoff", cutoff), sql.Named("terminal", minAttemptCount)).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}
