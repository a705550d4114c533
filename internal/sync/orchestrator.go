package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/notify"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/outbox"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/scoring"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/session"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/source"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/store"
)

// State is the engine's externally visible sync state.
type State string

const (
	StateIdle            State = "idle"
	StateSyncing         State = "syncing"
	StateOffline         State = "offline"
	StateUnauthenticated State = "unauthenticated"
	StateError           State = "error"
)

// Status is the sync surface the app shell renders.
type Status struct {
	State    State
	LastSync time.Time
	Err      error
}

// Report summarizes one completed sync cycle.
type Report struct {
	Started      time.Time
	Finished     time.Time
	Leads        int
	NewLeads     int
	Reassigned   int
	Booked       int
	ActionAlerts int
	Broadcasts   int
	Delivered    int
	Deferred     int
	Dropped      int
	Replayed     int
}

// EventKind classifies engine events.
type EventKind string

const (
	// EventCacheReady fires when a cached snapshot is available for
	// immediate rendering at the start of a cycle.
	EventCacheReady EventKind = "cache_ready"

	// EventSynced fires after a successful cycle.
	EventSynced EventKind = "synced"

	// EventSyncFailed fires after a failed cycle.
	EventSyncFailed EventKind = "sync_failed"
)

// Event is pushed to the engine's event channel. Slow consumers lose
// events rather than stalling the engine.
type Event struct {
	Kind   EventKind
	Status Status
	Report *Report
}

// cycleTimeout bounds one full cycle, queued writes included.
const cycleTimeout = 2 * time.Minute

// Orchestrator drives the periodic fetch, snapshot rotation, diffing,
// scoring and notification pipeline. Reads always come from the local
// snapshot; the remote is only touched here and in the outbox.
type Orchestrator struct {
	store    store.Store
	remote   source.RemoteStore
	sessions *session.Manager
	dispatch *notify.Dispatcher
	outbox   *outbox.Outbox
	log      *zap.Logger

	interval time.Duration
	now      func() time.Time

	events chan Event

	mu         gosync.Mutex
	runCtx     context.Context
	stop       context.CancelFunc
	status     Status
	foreground bool
	gen        int
	inflight   context.CancelFunc
}

// New creates an orchestrator polling at the given foreground interval.
func New(
	st store.Store,
	remote source.RemoteStore,
	sessions *session.Manager,
	dispatch *notify.Dispatcher,
	ob *outbox.Outbox,
	interval time.Duration,
	log *zap.Logger,
) *Orchestrator {
	if interval <= 0 {
		interval = 3 * time.Minute
	}
	return &Orchestrator{
		store:      st,
		remote:     remote,
		sessions:   sessions,
		dispatch:   dispatch,
		outbox:     ob,
		log:        log,
		interval:   interval,
		now:        time.Now,
		events:     make(chan Event, 16),
		status:     Status{State: StateIdle},
		foreground: true,
	}
}

// Run starts the poll loop and blocks until ctx is canceled. Ticks are
// skipped while the app is backgrounded; regaining the foreground
// triggers an immediate cycle via SetForeground.
func (o *Orchestrator) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.runCtx = ctx
	o.stop = cancel
	o.mu.Unlock()

	o.Sync(false)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.cancelInflight()
			return
		case <-ticker.C:
			if o.Foreground() {
				o.Sync(false)
			}
		}
	}
}

// Sync requests an asynchronous sync cycle. A cycle already in flight
// is canceled and superseded: the latest request wins.
func (o *Orchestrator) Sync(force bool) {
	o.mu.Lock()
	runCtx := o.runCtx
	if runCtx == nil || runCtx.Err() != nil {
		o.mu.Unlock()
		return
	}
	if o.inflight != nil {
		o.inflight()
	}
	ctx, cancel := context.WithTimeout(runCtx, cycleTimeout)
	o.inflight = cancel
	o.gen++
	gen := o.gen
	o.mu.Unlock()

	go func() {
		defer cancel()
		report, err := o.RunOnce(ctx, force)

		o.mu.Lock()
		if o.gen == gen {
			o.inflight = nil
		}
		o.mu.Unlock()

		if err != nil && ctx.Err() != nil {
			// Superseded or shutting down; the replacement cycle reports.
			return
		}
		if err != nil {
			o.emit(Event{Kind: EventSyncFailed, Status: o.Status()})
			return
		}
		o.emit(Event{Kind: EventSynced, Status: o.Status(), Report: &report})
	}()
}

// RunOnce performs one synchronous sync cycle and returns its report.
// The cached snapshot keeps serving readers whenever the cycle fails.
func (o *Orchestrator) RunOnce(ctx context.Context, force bool) (Report, error) {
	report := Report{Started: o.now()}
	o.setState(StateSyncing, nil)

	if cached, err := o.store.CurrentSnapshot(ctx); err == nil && !cached.IsEmpty() {
		o.emit(Event{Kind: EventCacheReady, Status: o.Status()})
	}

	if err := o.sessions.EnsureFresh(ctx, "sync"); err != nil {
		if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrSessionExpired) {
			o.setState(StateUnauthenticated, err)
			return report, err
		}
		if !o.sessions.Session().AccessValid(o.now()) {
			o.setState(StateOffline, err)
			return report, err
		}
		o.log.Warn("token refresh failed, continuing with valid access token", zap.Error(err))
	}

	// Drain queued writes first so the fetch sees their effects.
	if fr, err := o.outbox.Flush(ctx); err != nil {
		if ctx.Err() != nil {
			return report, err
		}
		o.log.Warn("outbox flush failed", zap.Error(err))
	} else {
		report.Replayed = fr.Replayed
		if fr.Remaining > 0 {
			o.log.Info("outbox still has pending writes", zap.Int("remaining", fr.Remaining))
		}
	}

	snap, err := o.remote.FetchAll(ctx, force)
	if err != nil {
		return report, o.fetchFailed(err)
	}
	report.Leads = len(snap.Leads)

	users, err := o.remote.FetchUsers(ctx)
	if err != nil {
		o.log.Warn("fetching users failed", zap.Error(err))
	}
	broadcasts, err := o.remote.FetchBroadcasts(ctx)
	if err != nil {
		o.log.Warn("fetching broadcasts failed", zap.Error(err))
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	previous, err := o.store.CurrentSnapshot(ctx)
	if err != nil {
		o.setState(StateError, err)
		return report, fmt.Errorf("reading current snapshot: %w", err)
	}
	if err := o.store.ReplaceSnapshot(ctx, snap); err != nil {
		o.setState(StateError, err)
		return report, fmt.Errorf("storing snapshot: %w", err)
	}

	recipient := o.sessions.UserID()
	role := userRole(users, recipient)

	diff := Diff(previous, snap, recipient)
	report.NewLeads = len(diff.NewLeads)
	report.Reassigned = len(diff.ReassignedToRecipient)
	report.Booked = len(diff.NewlyBooked)

	now := o.now()
	candidates := diffCandidates(diff, recipient, role, now)

	for _, lead := range snap.Leads {
		act, ok := scoring.Evaluate(lead, now)
		if !ok {
			continue
		}
		if n, ok := actionCandidate(lead, act, recipient, now); ok {
			candidates = append(candidates, n)
			report.ActionAlerts++
		}
	}

	bcs := broadcastCandidates(broadcasts, recipient, role, now)
	report.Broadcasts = len(bcs)
	candidates = append(candidates, bcs...)

	for _, n := range candidates {
		outcome, err := o.dispatch.Dispatch(ctx, n)
		if err != nil {
			if ctx.Err() != nil {
				return report, err
			}
			o.log.Warn("dispatching notification failed", zap.String("id", n.ID), zap.Error(err))
			continue
		}
		switch outcome {
		case notify.OutcomeDelivered:
			report.Delivered++
		case notify.OutcomeDeferred:
			report.Deferred++
		case notify.OutcomeDropped:
			report.Dropped++
		}
	}

	if fr, err := o.dispatch.FlushDue(ctx); err != nil {
		if ctx.Err() != nil {
			return report, err
		}
		o.log.Warn("flushing scheduled notifications failed", zap.Error(err))
	} else {
		report.Delivered += fr.Delivered + fr.Digested
		report.Dropped += fr.Dropped
	}

	o.dispatch.Prune(ctx)

	report.Finished = o.now()
	if err := o.store.SetLastSync(ctx, report.Finished); err != nil {
		o.log.Warn("recording sync time failed", zap.Error(err))
	}

	o.mu.Lock()
	o.status = Status{State: StateIdle, LastSync: report.Finished}
	o.mu.Unlock()

	o.log.Info("sync complete",
		zap.Int("leads", report.Leads),
		zap.Int("delivered", report.Delivered),
		zap.Int("deferred", report.Deferred),
		zap.Int("replayed", report.Replayed),
		zap.Duration("took", report.Finished.Sub(report.Started)))

	return report, nil
}

// Stop ends the run loop and cancels any in-flight cycle. Safe to call
// before Run and more than once.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	stop := o.stop
	o.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// SetForeground tells the engine whether the app is visible. Regaining
// the foreground triggers an immediate sync.
func (o *Orchestrator) SetForeground(fg bool) {
	o.mu.Lock()
	was := o.foreground
	o.foreground = fg
	o.mu.Unlock()
	if fg && !was {
		o.Sync(false)
	}
}

// Foreground reports whether the engine considers the app visible.
func (o *Orchestrator) Foreground() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.foreground
}

// Status returns the current sync status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Events returns the engine's event stream.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// fetchFailed classifies a fetch error into the matching engine state.
func (o *Orchestrator) fetchFailed(err error) error {
	switch {
	case source.IsAuth(err):
		o.setState(StateUnauthenticated, err)
	case source.Retryable(err):
		o.setState(StateOffline, err)
	default:
		o.setState(StateError, err)
	}
	return fmt.Errorf("fetching remote snapshot: %w", err)
}

func (o *Orchestrator) setState(state State, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.State = state
	o.status.Err = err
}

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
	}
}

func (o *Orchestrator) cancelInflight() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight != nil {
		o.inflight()
		o.inflight = nil
	}
}

// userRole resolves the recipient's role from the user directory.
func userRole(users []model.User, recipient string) model.Role {
	for _, u := range users {
		if model.FoldName(u.ID) == model.FoldName(recipient) {
			return u.Role
		}
	}
	return model.RoleAgent
}
