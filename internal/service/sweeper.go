package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/rentwise/rentd/internal/clock"
	"github.com/rentwise/rentd/internal/config"
	"github.com/rentwise/rentd/internal/domain/schedule"
	"github.com/rentwise/rentd/internal/port/duestore"
)

// sweepTick is how often the sweeper checks whether a job is due.
const sweepTick = 60 * time.Second

// Sweeper runs the scheduled maintenance jobs: status flips, overdue
// marking and expiry/renewal notices. Every job is also directly invocable,
// so operators can trigger a sweep out of schedule. All jobs are idempotent
// and safe to re-run.
type Sweeper struct {
	svc          *ContractService
	dues         duestore.Store
	notify       *NotificationService
	cfg          config.Sweep
	managerEmail string
	clock        clock.Clock
	log          *slog.Logger

	jobs []sweepJob
	stop chan struct{}
}

type sweepJob struct {
	name    string
	cron    schedule.Cron
	lastRun time.Time
	run     func(ctx context.Context)
}

// NewSweeper wires a Sweeper. The schedule expressions in cfg must already
// be validated; an unparsable one is a programming error and panics.
func NewSweeper(svc *ContractService, dues duestore.Store, notify *NotificationService, cfg config.Sweep, managerEmail string, clk clock.Clock, log *slog.Logger) *Sweeper {
	s := &Sweeper{
		svc:          svc,
		dues:         dues,
		notify:       notify,
		cfg:          cfg,
		managerEmail: managerEmail,
		clock:        clk,
		log:          log,
		stop:         make(chan struct{}),
	}

	now := clk.Now()
	for _, j := range []struct {
		name string
		expr string
		run  func(ctx context.Context)
	}{
		{"status", cfg.StatusSchedule, s.RunStatusSweep},
		{"overdue", cfg.OverdueSchedule, s.RunOverdueSweep},
		{"expiry", cfg.ExpirySchedule, func(ctx context.Context) { s.RunExpirySweep(ctx, cfg.ExpiryDaysAhead, false) }},
		{"urgent_expiry", cfg.UrgentExpirySchedule, func(ctx context.Context) { s.RunExpirySweep(ctx, cfg.UrgentDaysAhead, true) }},
		{"renewable", cfg.RenewableSchedule, s.RunRenewableSweep},
	} {
		cron, err := schedule.Parse(j.expr)
		if err != nil {
			panic("sweeper: invalid schedule " + j.name + ": " + err.Error())
		}
		s.jobs = append(s.jobs, sweepJob{name: j.name, cron: cron, lastRun: now, run: j.run})
	}
	return s
}

// Start launches the background scheduler. Call Stop or cancel ctx to halt.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepTick)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	s.log.Info("sweeper started", "jobs", len(s.jobs))
}

// Stop halts the background scheduler.
func (s *Sweeper) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	now := s.clock.Now()
	for i := range s.jobs {
		j := &s.jobs[i]
		if j.cron.NextAfter(j.lastRun).After(now) {
			continue
		}
		j.lastRun = now
		s.log.Debug("sweep job running", "job", j.name)
		j.run(ctx)
	}
}

// RunStatusSweep activates PENDING contracts whose start date has arrived
// and expires ACTIVE contracts whose end date has passed.
func (s *Sweeper) RunStatusSweep(ctx context.Context) {
	n, err := s.svc.UpdateStatuses(ctx)
	if err != nil {
		s.log.Error("status sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("status sweep complete", "updated", n)
	}
}

// RunOverdueSweep marks UNPAID dues past their due date as OVERDUE.
func (s *Sweeper) RunOverdueSweep(ctx context.Context) {
	n, err := s.dues.MarkOverdue(ctx, s.clock.Today())
	if err != nil {
		s.log.Error("overdue sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("overdue sweep complete", "marked", n)
	}
}

// RunExpirySweep warns tenants whose ACTIVE contract ends within daysAhead
// days.
func (s *Sweeper) RunExpirySweep(ctx context.Context, daysAhead int, urgent bool) {
	expiring, err := s.svc.ExpiringContracts(ctx, daysAhead)
	if err != nil {
		s.log.Error("expiry sweep failed", "error", err)
		return
	}
	if len(expiring) == 0 {
		return
	}
	s.log.Info("expiry sweep found contracts", "count", len(expiring), "days_ahead", daysAhead, "urgent", urgent)
	s.notify.NotifyExpiring(ctx, expiring, daysAhead, urgent)
}

// RunRenewableSweep reports contracts ending soon that have no successor.
func (s *Sweeper) RunRenewableSweep(ctx context.Context) {
	renewable, err := s.svc.RenewableContracts(ctx, s.cfg.RenewableDaysAhead)
	if err != nil {
		s.log.Error("renewable sweep failed", "error", err)
		return
	}
	if len(renewable) == 0 {
		return
	}
	s.log.Info("renewable sweep found contracts", "count", len(renewable))
	s.notify.NotifyRenewable(ctx, s.managerEmail, renewable)
}
