package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/store"
)

const (
	// DefaultDedupWindow is how long one logical notification stays
	// suppressed after a delivery. Broadcasts are suppressed forever.
	DefaultDedupWindow = 4 * time.Hour

	// DefaultRetention is how long delivered notifications stay in the
	// inbox before pruning.
	DefaultRetention = 30 * 24 * time.Hour

	// digestPreviewLines caps how many item titles the digest summary
	// lists before collapsing the rest into a count.
	digestPreviewLines = 5
)

// Outcome says what Dispatch did with a candidate.
type Outcome string

const (
	// OutcomeDelivered means the notification was presented and logged.
	OutcomeDelivered Outcome = "delivered"

	// OutcomeDeferred means delivery was scheduled for later (DND window
	// or digest).
	OutcomeDeferred Outcome = "deferred"

	// OutcomeDropped means the notification was suppressed: category
	// disabled, lead snoozed, duplicate, or low priority during DND.
	OutcomeDropped Outcome = "dropped"
)

// FlushReport summarizes one scheduled-delivery flush.
type FlushReport struct {
	// Delivered counts individually presented deferred notifications.
	Delivered int

	// Digested counts notifications folded into a digest summary. Each
	// lands in the inbox; only the summary reaches the sink.
	Digested int

	// Dropped counts scheduled entries suppressed as duplicates.
	Dropped int
}

// Dispatcher is the delivery pipeline between notification candidates and
// the presentation sink. Every candidate passes through settings, snooze,
// DND, and dedup checks before anything is shown.
type Dispatcher struct {
	store       store.Store
	sink        Sink
	log         *zap.Logger
	now         func() time.Time
	dedupWindow time.Duration
	retention   time.Duration
}

// NewDispatcher creates a dispatcher with default dedup and retention
// windows.
func NewDispatcher(st store.Store, sink Sink, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:       st,
		sink:        sink,
		log:         log,
		now:         time.Now,
		dedupWindow: DefaultDedupWindow,
		retention:   DefaultRetention,
	}
}

// Dispatch runs one candidate through the delivery pipeline.
func (d *Dispatcher) Dispatch(ctx context.Context, n model.Notification) (Outcome, error) {
	if n.ID == "" {
		n.ID = n.Key.Hash()
	}
	now := d.now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}

	settings, err := d.store.NotificationSettings(ctx)
	if err != nil {
		return OutcomeDropped, fmt.Errorf("loading notification settings: %w", err)
	}

	if !settings.CategoryEnabled(n.Category) {
		return OutcomeDropped, nil
	}

	// Snoozed lead: nothing about it gets through until the snooze ends.
	if n.DeepLink != nil && !n.DeepLink.Lead.IsZero() {
		snoozes, err := d.store.ActiveSnoozes(ctx, now)
		if err != nil {
			return OutcomeDropped, fmt.Errorf("loading snoozes: %w", err)
		}
		if _, snoozed := snoozes[n.DeepLink.Lead]; snoozed {
			return OutcomeDropped, nil
		}
	}

	// DND window: high priority punches through, everything else is
	// digested or deferred to the window's end, except that low priority
	// is dropped outright when digesting is off.
	if settings.DNDActive(now) && n.Priority != model.PriorityHigh {
		if !settings.DigestLowPriority && n.Priority == model.PriorityLow {
			return OutcomeDropped, nil
		}
		n.ScheduledFor = settings.NextDNDEnd(now)
		if err := d.store.ScheduleNotification(ctx, n, settings.DigestLowPriority); err != nil {
			return OutcomeDropped, fmt.Errorf("scheduling deferred delivery: %w", err)
		}
		return OutcomeDeferred, nil
	}

	if dup, err := d.isDuplicate(ctx, n, now); err != nil {
		return OutcomeDropped, err
	} else if dup {
		return OutcomeDropped, nil
	}

	if err := d.deliver(ctx, n, now); err != nil {
		return OutcomeDropped, err
	}
	return OutcomeDelivered, nil
}

// FlushDue delivers every scheduled notification whose time has come.
// Digest-marked items land in the inbox individually but reach the sink
// as one summary per recipient.
func (d *Dispatcher) FlushDue(ctx context.Context) (FlushReport, error) {
	now := d.now()

	items, err := d.store.DueScheduled(ctx, now)
	if err != nil {
		return FlushReport{}, fmt.Errorf("loading due notifications: %w", err)
	}

	var report FlushReport
	digests := make(map[string][]model.Notification)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		n := item.Notification

		dup, err := d.isDuplicate(ctx, n, now)
		if err != nil {
			return report, err
		}
		if dup {
			d.removeScheduled(ctx, n.ID)
			report.Dropped++
			continue
		}

		if item.Digest {
			if err := d.store.RecordDelivery(ctx, n, now); err != nil {
				return report, fmt.Errorf("recording digested delivery: %w", err)
			}
			d.removeScheduled(ctx, n.ID)
			digests[n.Key.Recipient] = append(digests[n.Key.Recipient], n)
			report.Digested++
			continue
		}

		if err := d.deliver(ctx, n, now); err != nil {
			return report, err
		}
		d.removeScheduled(ctx, n.ID)
		report.Delivered++
	}

	// One summary and one badge jump per recipient, not one per item.
	for recipient, batch := range digests {
		d.present(d.digestSummary(recipient, batch))
		d.updateBadge(ctx, recipient)
	}

	return report, nil
}

// Snooze silences a lead's alerts until the given time and schedules a
// follow-up reminder for when the snooze ends.
func (d *Dispatcher) Snooze(ctx context.Context, recipient string, key model.LeadKey, until time.Time) error {
	if key.IsZero() {
		return fmt.Errorf("snoozing lead: key is empty")
	}
	if err := d.store.SetSnooze(ctx, key, until); err != nil {
		return err
	}

	n := model.NewNotification(
		model.NotificationKey{Recipient: recipient, Source: key.String(), Action: "snooze_wake"},
		model.CategoryFollowUp,
		model.PriorityNormal,
		"Snooze ended: "+key.NameFold,
		"This lead is due for attention again.",
		d.now(),
	)
	n.DeepLink = &model.DeepLink{Route: "/lead", Lead: key}
	n.ScheduledFor = until

	return d.store.ScheduleNotification(ctx, n, false)
}

// MarkRead marks a notification read and refreshes the badge.
func (d *Dispatcher) MarkRead(ctx context.Context, recipient, id string) error {
	if err := d.store.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	d.updateBadge(ctx, recipient)
	return nil
}

// Inbox returns the recipient's delivered notifications, newest first.
func (d *Dispatcher) Inbox(ctx context.Context, recipient string, limit int) ([]model.Notification, error) {
	return d.store.Inbox(ctx, recipient, limit)
}

// Unread returns the recipient's unread notifications, newest first.
func (d *Dispatcher) Unread(ctx context.Context, recipient string) ([]model.Notification, error) {
	return d.store.UnreadNotifications(ctx, recipient)
}

// Prune drops delivery rows older than the retention window. Failures are
// logged, not propagated; pruning is housekeeping.
func (d *Dispatcher) Prune(ctx context.Context) {
	cutoff := d.now().Add(-d.retention)
	if err := d.store.PruneDeliveries(ctx, cutoff); err != nil {
		d.log.Warn("pruning deliveries failed", zap.Error(err))
	}
}

// isDuplicate checks the delivery log for a recent delivery of the same
// logical notification. Broadcasts check the whole log.
func (d *Dispatcher) isDuplicate(ctx context.Context, n model.Notification, now time.Time) (bool, error) {
	since := now.Add(-d.dedupWindow)
	if n.Category == model.CategoryBroadcast {
		since = time.Time{}
	}
	dup, err := d.store.DeliveredSince(ctx, n.Key, since)
	if err != nil {
		return false, fmt.Errorf("checking delivery history: %w", err)
	}
	return dup, nil
}

// deliver records the delivery, presents the notification, and bumps the
// recipient's badge.
func (d *Dispatcher) deliver(ctx context.Context, n model.Notification, now time.Time) error {
	if err := d.store.RecordDelivery(ctx, n, now); err != nil {
		return fmt.Errorf("recording delivery: %w", err)
	}
	d.present(n)
	d.updateBadge(ctx, n.Key.Recipient)
	return nil
}

// present hands a notification to the sink. The sink wraps third-party
// surface code; a panic there must not unwind the sync loop.
func (d *Dispatcher) present(n model.Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("notification sink panicked",
				zap.Any("panic", r),
				zap.String("id", n.ID))
		}
	}()
	d.sink.Present(n)
}

// updateBadge recomputes and pushes the recipient's unread count.
func (d *Dispatcher) updateBadge(ctx context.Context, recipient string) {
	count, err := d.store.UnreadCount(ctx, recipient)
	if err != nil {
		d.log.Warn("counting unread notifications failed", zap.Error(err))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("notification sink panicked", zap.Any("panic", r))
		}
	}()
	d.sink.SetBadgeCount(count)
}

// removeScheduled drops a flushed schedule entry, logging any failure.
// A leftover entry redelivers later and dedup swallows it then.
func (d *Dispatcher) removeScheduled(ctx context.Context, id string) {
	if err := d.store.RemoveScheduled(ctx, id); err != nil {
		d.log.Warn("removing scheduled notification failed",
			zap.String("id", id), zap.Error(err))
	}
}

// digestSummary folds a recipient's digested batch into one alert.
func (d *Dispatcher) digestSummary(recipient string, batch []model.Notification) model.Notification {
	title := fmt.Sprintf("%d updates while you were away", len(batch))
	if len(batch) == 1 {
		title = batch[0].Title
	}

	var b strings.Builder
	for i, n := range batch {
		if i == digestPreviewLines {
			fmt.Fprintf(&b, "and %d more", len(batch)-digestPreviewLines)
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(n.Title)
	}

	return model.NewNotification(
		model.NotificationKey{Recipient: recipient, Source: "digest", Action: "summary"},
		batch[0].Category,
		model.PriorityLow,
		title,
		b.String(),
		d.now(),
	)
}
