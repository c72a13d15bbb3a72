package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/core/metrics"
	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/core/tracing"
	ndr "reverse-logistics/internal/features/ndr/domain"
	returns "reverse-logistics/internal/features/returns/domain"
	rto "reverse-logistics/internal/features/rto/domain"
	"reverse-logistics/internal/features/sla/ports"

	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const jobName = "sla_deadline_monitor"

// Options tunes the deadline monitor.
type Options struct {
	// Interval is the pause between sweeps.
	Interval time.Duration
	// BatchSize caps how many entities each step loads per sweep.
	BatchSize int
	// Workers bounds how many entities are handled at once.
	Workers int
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 5 * time.Minute
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.Workers <= 0 {
		o.Workers = 8
	}
	return o
}

// Report counts what one sweep did.
type Report struct {
	Escalated   int `json:"escalated"`
	AutoRTOs    int `json:"auto_rtos"`
	Linked      int `json:"linked"`
	Breaches    int `json:"pickup_breaches"`
	ActionsRun  int `json:"actions_run"`
	AWBsRetried int `json:"awbs_retried"`
	// Deferred counts automatic RTOs held back by the trigger rate limit;
	// the next sweep retries them.
	Deferred    int `json:"deferred"`
	Failures    int `json:"failures"`
}

type tally struct {
	escalated, autoRTOs, linked, breaches, actions, awbs, deferred, failures atomic.Int64
}

func (t *tally) report() Report {
	return Report{
		Escalated:   int(t.escalated.Load()),
		AutoRTOs:    int(t.autoRTOs.Load()),
		Linked:      int(t.linked.Load()),
		Breaches:    int(t.breaches.Load()),
		ActionsRun:  int(t.actions.Load()),
		AWBsRetried: int(t.awbs.Load()),
		Deferred:    int(t.deferred.Load()),
		Failures:    int(t.failures.Load()),
	}
}

// Monitor periodically enforces NDR resolution deadlines and return pickup
// SLAs. Every action it takes is a claim on the entity, so overlapping
// sweeps from several processes stay safe.
type Monitor struct {
	ndr     ports.NDRService
	rto     ports.RTOService
	returns ports.ReturnService

	opts      Options
	pool      *ants.Pool
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
	log       *zap.Logger
}

// New builds a monitor with its worker pool. Start schedules it.
func New(ndrSvc ports.NDRService, rtoSvc ports.RTOService, returnSvc ports.ReturnService, opts Options) (*Monitor, error) {
	opts = opts.withDefaults()
	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitor worker pool: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		ndr:     ndrSvc,
		rto:     rtoSvc,
		returns: returnSvc,
		opts:    opts,
		pool:    pool,
		ctx:     ctx,
		cancel:  cancel,
		log:     logger.Named("sla"),
	}, nil
}

// Start registers the sweep as a singleton job. A sweep that outlasts the
// interval delays the next one instead of overlapping it.
func (m *Monitor) Start() error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(m.opts.Interval),
		gocron.NewTask(m.run),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", jobName, err)
	}
	m.scheduler = s
	s.Start()
	m.log.Info("Deadline monitor started",
		zap.Duration("interval", m.opts.Interval),
		zap.Int("batch_size", m.opts.BatchSize),
		zap.Int("workers", m.opts.Workers))
	return nil
}

// Stop cancels a running sweep, waits for the scheduler and releases the
// worker pool.
func (m *Monitor) Stop() error {
	m.cancel()
	var err error
	if m.scheduler != nil {
		err = m.scheduler.Shutdown()
	}
	m.pool.Release()
	m.log.Info("Deadline monitor stopped")
	return err
}

func (m *Monitor) run() {
	ctx, cancel := context.WithTimeout(m.ctx, m.opts.Interval)
	defer cancel()

	r, err := m.Sweep(ctx)
	if err != nil {
		m.log.Warn("Sweep interrupted", zap.Error(err), zap.Any("report", r))
		return
	}
	m.log.Info("Sweep finished", zap.Any("report", r))
}

// Sweep runs one pass over every deadline. A failure on one entity is
// logged and counted without stopping the rest; only cancellation ends the
// sweep early.
func (m *Monitor) Sweep(ctx context.Context) (report Report, err error) {
	started := time.Now()
	ctx, span := tracing.Start(ctx, "sla.sweep")
	defer func() {
		metrics.SweepDuration.Observe(time.Since(started).Seconds())
		tracing.End(span, err)
	}()

	t := &tally{}
	steps := []struct {
		name string
		run  func(context.Context, *tally) error
	}{
		{"escalate", m.escalateOverdue},
		{"retry_rto", m.retryEscalated},
		{"pickup_breach", m.escalateBreaches},
		{"ndr_action", m.runDueActions},
		{"awb_retry", m.retryAWBs},
	}
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return t.report(), err
		}
		if err := st.run(ctx, t); err != nil {
			if ctx.Err() != nil {
				return t.report(), ctx.Err()
			}
			t.failures.Add(1)
			m.record(st.name, "error")
			m.log.Error("Sweep step failed", zap.String("step", st.name), zap.Error(err))
		}
	}
	return t.report(), nil
}

func (m *Monitor) record(action, result string) {
	metrics.SweepActionsTotal.WithLabelValues(action, result).Inc()
}

// fail counts a per-entity failure.
func (m *Monitor) fail(t *tally, action, id string, err error) {
	t.failures.Add(1)
	m.record(action, "error")
	m.log.Warn("Sweep action failed", zap.String("action", action), zap.String("id", id), zap.Error(err))
}

// fanOut runs fn for every item on the worker pool and waits for all of
// them. Items not yet submitted are dropped once ctx is done.
func fanOut[T any](ctx context.Context, pool *ants.Pool, items []T, fn func(context.Context, T)) error {
	var wg sync.WaitGroup
	var submitErr error
	for _, it := range items {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			fn(ctx, it)
		}); err != nil {
			wg.Done()
			submitErr = err
			break
		}
	}
	wg.Wait()
	if submitErr != nil {
		return fmt.Errorf("failed to submit sweep task: %w", submitErr)
	}
	return ctx.Err()
}

func (m *Monitor) escalateOverdue(ctx context.Context, t *tally) error {
	events, err := m.ndr.FindOverdue(ctx, m.opts.BatchSize)
	if err != nil {
		return err
	}
	return fanOut(ctx, m.pool, events, func(ctx context.Context, e ndr.Event) {
		got, claimed, err := m.ndr.EscalateOverdue(ctx, e.ID)
		if err != nil {
			m.fail(t, "escalate", e.ID, err)
			return
		}
		if !claimed {
			m.record("escalate", "skipped")
			return
		}
		t.escalated.Add(1)
		m.record("escalate", "ok")
		m.triggerRTO(ctx, t, got)
	})
}

func (m *Monitor) retryEscalated(ctx context.Context, t *tally) error {
	events, err := m.ndr.FindEscalatedWithoutRTO(ctx, m.opts.BatchSize)
	if err != nil {
		return err
	}
	return fanOut(ctx, m.pool, events, func(ctx context.Context, e ndr.Event) {
		m.triggerRTO(ctx, t, &e)
	})
}

// triggerRTO starts the automatic RTO of an escalated event. A shipment
// that already has a live RTO gets linked to it instead.
func (m *Monitor) triggerRTO(ctx context.Context, t *tally, e *ndr.Event) {
	req := rto.TriggerRequest{
		ShipmentID: e.ShipmentID,
		OrderID:    e.OrderID,
		CompanyID:  e.CompanyID,
		Courier:    e.Courier,
		Reason:     autoReason(e),
		NDREventID: e.ID,
		Trigger:    rto.TriggerAuto,
	}
	ev, err := m.rto.TriggerRTO(ctx, req, scope.System())
	switch {
	case err == nil:
		t.autoRTOs.Add(1)
		m.record("auto_rto", "ok")
		m.log.Info("Automatic RTO triggered", zap.String("ndr_id", e.ID), zap.String("rto_id", ev.ID))
	case errors.Is(err, rto.ErrRTOAlreadyActive):
		m.linkActive(ctx, t, e)
	case apperror.KindOf(err) == apperror.KindRateLimited:
		t.deferred.Add(1)
		m.record("auto_rto", "deferred")
		m.log.Info("Automatic RTO deferred by rate limit", zap.String("ndr_id", e.ID), zap.String("shipment_id", e.ShipmentID))
	case ev != nil:
		// Stored but the AWB failed; the AWB retry step picks it up.
		t.autoRTOs.Add(1)
		m.record("auto_rto", "awb_pending")
		m.log.Warn("Automatic RTO waiting for AWB", zap.String("ndr_id", e.ID), zap.String("rto_id", ev.ID), zap.Error(err))
	default:
		m.fail(t, "auto_rto", e.ID, err)
	}
}

func (m *Monitor) linkActive(ctx context.Context, t *tally, e *ndr.Event) {
	active, err := m.rto.FindActiveByShipment(ctx, e.ShipmentID)
	if err != nil {
		m.fail(t, "link_rto", e.ID, err)
		return
	}
	if err := m.ndr.LinkRTO(ctx, e.ShipmentID, active.ID, scope.System().Actor()); err != nil {
		m.fail(t, "link_rto", e.ID, err)
		return
	}
	t.linked.Add(1)
	m.record("link_rto", "ok")
}

func autoReason(e *ndr.Event) string {
	kind := string(ndr.TypeOther)
	if e.Type != nil {
		kind = string(*e.Type)
	}
	return "NDR resolution window expired (" + kind + ")"
}

func (m *Monitor) escalateBreaches(ctx context.Context, t *tally) error {
	orders, err := m.returns.FindPickupBreaches(ctx, m.opts.BatchSize)
	if err != nil {
		return err
	}
	return fanOut(ctx, m.pool, orders, func(ctx context.Context, o returns.ReturnOrder) {
		_, claimed, err := m.returns.EscalatePickupBreach(ctx, o.ID)
		if err != nil {
			m.fail(t, "pickup_breach", o.ID, err)
			return
		}
		if !claimed {
			m.record("pickup_breach", "skipped")
			return
		}
		t.breaches.Add(1)
		m.record("pickup_breach", "ok")
	})
}

func (m *Monitor) runDueActions(ctx context.Context, t *tally) error {
	events, err := m.ndr.FindActionsDue(ctx, m.opts.BatchSize)
	if err != nil {
		return err
	}
	return fanOut(ctx, m.pool, events, func(ctx context.Context, e ndr.Event) {
		if _, err := m.ndr.ExecuteDueActions(ctx, e.ID); err != nil {
			m.fail(t, "ndr_action", e.ID, err)
			return
		}
		t.actions.Add(1)
		m.record("ndr_action", "ok")
	})
}

func (m *Monitor) retryAWBs(ctx context.Context, t *tally) error {
	events, err := m.rto.FindAwaitingAWB(ctx, m.opts.BatchSize)
	if err != nil {
		return err
	}
	return fanOut(ctx, m.pool, events, func(ctx context.Context, e rto.Event) {
		_, err := m.rto.RetryReverseAWB(ctx, e.ID, scope.System())
		switch {
		case err == nil:
			t.awbs.Add(1)
			m.record("awb_retry", "ok")
		case errors.Is(err, rto.ErrAWBAlreadyGenerated):
			m.record("awb_retry", "skipped")
		default:
			m.fail(t, "awb_retry", e.ID, err)
		}
	})
}
