package cron

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/matreq-backend/internal/cutoff"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
	"github.com/angelmondragon/matreq-backend/pkg/outbox"
)

const defaultReminderWindow = 2 * time.Hour

type openTableLister interface {
	ListByStatus(ctx context.Context, statuses ...enums.TableStatus) ([]models.RequisitionTable, error)
}

type requisitionLister interface {
	ListByTables(ctx context.Context, tableIDs []uuid.UUID) ([]models.Requisition, error)
}

type upcomingCutOff interface {
	Upcoming(typ enums.RequisitionType, now time.Time) (cutoff.Next, error)
}

// reminderMarks dedupes reminders across cycles and replicas.
type reminderMarks interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CutOffReminderKey(tableID string, cutOff time.Time) string
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type CutOffReminderJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Tables       openTableLister
	Requisitions requisitionLister
	Policy       upcomingCutOff
	Marks        reminderMarks
	Outbox       outboxEmitter
	Window       time.Duration
}

// cutOffReminderJob queues one cutoff_approaching event per open table and
// cut-off instant when that cut-off is inside the window.
type cutOffReminderJob struct {
	logg         *logger.Logger
	db           txRunner
	tables       openTableLister
	requisitions requisitionLister
	policy       upcomingCutOff
	marks        reminderMarks
	outbox       outboxEmitter
	window       time.Duration
	now          func() time.Time
}

func NewCutOffReminderJob(params CutOffReminderJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Tables == nil:
		return nil, fmt.Errorf("table lister required")
	case params.Requisitions == nil:
		return nil, fmt.Errorf("requisition lister required")
	case params.Policy == nil:
		return nil, fmt.Errorf("cut-off policy required")
	case params.Marks == nil:
		return nil, fmt.Errorf("reminder store required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultReminderWindow
	}
	return &cutOffReminderJob{
		logg:         params.Logger,
		db:           params.DB,
		tables:       params.Tables,
		requisitions: params.Requisitions,
		policy:       params.Policy,
		marks:        params.Marks,
		outbox:       params.Outbox,
		window:       window,
		now:          time.Now,
	}, nil
}

func (j *cutOffReminderJob) Name() string { return "cutoff-reminder" }

func (j *cutOffReminderJob) Run(ctx context.Context) error {
	now := j.now()
	open, err := j.tables.ListByStatus(ctx, enums.TableStatusDraft, enums.TableStatusRejected)
	if err != nil {
		return fmt.Errorf("list open tables: %w", err)
	}
	if len(open) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(open))
	for _, t := range open {
		ids = append(ids, t.ID)
	}
	reqs, err := j.requisitions.ListByTables(ctx, ids)
	if err != nil {
		return fmt.Errorf("list requisitions: %w", err)
	}
	typesByTable := map[uuid.UUID]map[enums.RequisitionType]struct{}{}
	for _, r := range reqs {
		if typesByTable[r.TableID] == nil {
			typesByTable[r.TableID] = map[enums.RequisitionType]struct{}{}
		}
		typesByTable[r.TableID][r.Type] = struct{}{}
	}

	var errs error
	queued := 0
	for _, table := range open {
		for _, typ := range sortedTypes(typesByTable[table.ID]) {
			next, err := j.policy.Upcoming(typ, now)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			until := next.At.Sub(now)
			if until <= 0 || until > j.window {
				continue
			}
			sent, err := j.remind(ctx, table, typ, next.At, until)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("table %s: %w", table.ID, err))
				continue
			}
			if sent {
				queued++
			}
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"open_tables": len(open),
		"queued":      queued,
	}), "cutoff.reminders_queued")
	return errs
}

// remind claims the (table, cut-off) mark and queues the event. The mark is
// dropped again when the event could not be stored so the next cycle retries.
func (j *cutOffReminderJob) remind(ctx context.Context, table models.RequisitionTable, typ enums.RequisitionType, at time.Time, until time.Duration) (bool, error) {
	key := j.marks.CutOffReminderKey(table.ID.String(), at)
	claimed, err := j.marks.SetNX(ctx, key, string(typ), until+time.Hour)
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	if !claimed {
		return false, nil
	}

	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCutOffApproaching,
			AggregateType: enums.AggregateTable,
			AggregateID:   table.ID,
			Data: outbox.CutOffApproachingEvent{
				TableID: table.ID,
				OwnerID: table.UserID,
				Type:    typ,
				CutOff:  at,
			},
		})
	})
	if err != nil {
		if delErr := j.marks.Del(ctx, key); delErr != nil {
			err = multierr.Append(err, delErr)
		}
		return false, err
	}
	return true, nil
}

func sortedTypes(set map[enums.RequisitionType]struct{}) []enums.RequisitionType {
	out := make([]enums.RequisitionType, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, k int) bool { return out[i] < out[k] })
	return out
}
