package storage

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/autobook/libs/db"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/outbox"
)

// lockClass is the first key of every two-key advisory lock taken here, so
// calendar locks never collide with other users of pg_advisory_*.
const lockClass = 0x41424b // "ABK"

const globalLockKey = "calendar:*"

type TxOptions struct {
	LockTimeout     time.Duration
	MaxTries        uint
	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

// TxRunner implements booking.TxRunner on Postgres. Each attempt runs in its
// own transaction, takes the calendar advisory locks for the scope, then runs
// fn. Contention failures retry the whole attempt with exponential backoff.
type TxRunner struct {
	pool   *db.Pool
	outbox *outbox.Repository
	logger *slog.Logger
	opts   TxOptions
}

func NewTxRunner(pool *db.Pool, outboxRepo *outbox.Repository, logger *slog.Logger, opts TxOptions) *TxRunner {
	if opts.MaxTries == 0 {
		opts.MaxTries = 5
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 25 * time.Millisecond
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = 10 * time.Second
	}
	return &TxRunner{pool: pool, outbox: outboxRepo, logger: logger, opts: opts}
}

func (r *TxRunner) WithinTx(ctx context.Context, scope booking.LockScope, fn func(context.Context, booking.AppointmentTx) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.opts.InitialInterval
	bo.MaxInterval = 500 * time.Millisecond

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := r.attempt(ctx, scope, fn)
		if err != nil && !db.IsTransient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(r.opts.MaxTries),
		backoff.WithMaxElapsedTime(r.opts.MaxElapsed),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.logger.Warn("transaction contention, retrying", "attempt", attempt, "wait", wait, "sqlstate", db.Code(err))
		}),
	)
	return classify(err)
}

func (r *TxRunner) attempt(ctx context.Context, scope booking.LockScope, fn func(context.Context, booking.AppointmentTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.opts.LockTimeout > 0 {
		ms := strconv.FormatInt(r.opts.LockTimeout.Milliseconds(), 10) + "ms"
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
			return err
		}
	}
	for _, step := range lockPlan(scope) {
		sql := `SELECT pg_advisory_xact_lock($1::int4, hashtext($2))`
		if step.shared {
			sql = `SELECT pg_advisory_xact_lock_shared($1::int4, hashtext($2))`
		}
		if _, err := tx.Exec(ctx, sql, lockClass, step.key); err != nil {
			return err
		}
	}

	if err := fn(ctx, &pgTx{tx: tx, outbox: r.outbox}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// classify maps what is left after retries onto booking errors.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsExclusionViolation(err):
		return booking.ErrSlotTaken
	case db.IsTransient(err):
		return &booking.Error{Kind: booking.KindPersistence, Msg: "database busy, try again", Retryable: true, Err: err}
	case db.IsCheckViolation(err):
		return &booking.Error{Kind: booking.KindValidation, Msg: "appointment violates a table constraint", Err: err}
	case db.IsUniqueViolation(err):
		return &booking.Error{Kind: booking.KindConflict, Msg: "appointment already exists", Err: err}
	}
	return err
}

type lockStep struct {
	key    string
	shared bool
}

// lockPlan orders locks so every writer acquires them the same way: the
// global key first (exclusive for unassigned bookings, shared otherwise),
// then each provider key in sorted order.
func lockPlan(scope booking.LockScope) []lockStep {
	if scope.Global {
		return []lockStep{{key: globalLockKey}}
	}
	ids := slices.Clone(scope.ProviderIDs)
	ids = slices.DeleteFunc(ids, func(id string) bool { return id == "" })
	if len(ids) == 0 {
		return nil
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	plan := []lockStep{{key: globalLockKey, shared: true}}
	for _, id := range ids {
		plan = append(plan, lockStep{key: "calendar:provider:" + id})
	}
	return plan
}

type pgTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *pgTx) GetAppointmentForUpdate(ctx context.Context, id string) (model.Appointment, bool, error) {
	return getAppointment(ctx, t.tx, id, true)
}

func (t *pgTx) HasOverlap(ctx context.Context, q booking.ConflictQuery) (bool, error) {
	return hasOverlap(ctx, t.tx, q)
}

func (t *pgTx) InsertAppointment(ctx context.Context, a model.Appointment) error {
	return insertAppointment(ctx, t.tx, a)
}

func (t *pgTx) UpdateAppointment(ctx context.Context, a model.Appointment) error {
	return updateAppointment(ctx, t.tx, a)
}

func (t *pgTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}
