package store

import (
	"context"
	"time"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
)

// ScheduledItem is a deferred notification waiting for its delivery time.
// Digest marks items that should be folded into a single summary alert
// instead of being presented one by one.
type ScheduledItem struct {
	Notification model.Notification
	Digest       bool
}

// Store defines the persistence interface for lead snapshots, the offline
// mutation queue, the notification delivery log, and engine bookkeeping.
type Store interface {
	// === Lead snapshots ===

	// ReplaceSnapshot atomically rotates the current snapshot into the
	// previous slot and installs snap as the new current snapshot.
	ReplaceSnapshot(ctx context.Context, snap model.Snapshot) error
	CurrentSnapshot(ctx context.Context) (model.Snapshot, error)
	PreviousSnapshot(ctx context.Context) (model.Snapshot, error)

	// === Mutation queue ===

	// EnqueueMutation appends m to the durable write queue and returns it
	// with its ID assigned. Queue order is strictly FIFO.
	EnqueueMutation(ctx context.Context, m model.QueuedMutation) (model.QueuedMutation, error)
	Mutations(ctx context.Context) ([]model.QueuedMutation, error)
	RemoveMutation(ctx context.Context, id string) error
	RecordMutationFailure(ctx context.Context, id string, lastError string) error

	// === Notification deliveries ===

	RecordDelivery(ctx context.Context, n model.Notification, deliveredAt time.Time) error
	// DeliveredSince reports whether a notification with the same logical
	// key has been delivered after since. A zero since checks the whole log.
	DeliveredSince(ctx context.Context, key model.NotificationKey, since time.Time) (bool, error)
	Inbox(ctx context.Context, recipient string, limit int) ([]model.Notification, error)
	UnreadNotifications(ctx context.Context, recipient string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	UnreadCount(ctx context.Context, recipient string) (int, error)
	PruneDeliveries(ctx context.Context, before time.Time) error

	// === Scheduled deliveries ===

	// ScheduleNotification records n for delivery at n.ScheduledFor.
	// Re-scheduling the same notification ID replaces the earlier entry.
	ScheduleNotification(ctx context.Context, n model.Notification, digest bool) error
	DueScheduled(ctx context.Context, now time.Time) ([]ScheduledItem, error)
	RemoveScheduled(ctx context.Context, id string) error

	// === Snoozes ===

	SetSnooze(ctx context.Context, key model.LeadKey, until time.Time) error
	ClearSnooze(ctx context.Context, key model.LeadKey) error
	// ActiveSnoozes returns the snoozes that have not yet expired at now.
	ActiveSnoozes(ctx context.Context, now time.Time) (map[model.LeadKey]time.Time, error)

	// === Notification settings ===

	NotificationSettings(ctx context.Context) (model.NotificationSettings, error)
	SaveNotificationSettings(ctx context.Context, s model.NotificationSettings) error
	// SeedNotificationSettings stores s only when no settings have been
	// saved yet. Later saves are never overwritten.
	SeedNotificationSettings(ctx context.Context, s model.NotificationSettings) error

	// === Sync bookkeeping ===

	SetLastSync(ctx context.Context, t time.Time) error
	LastSync(ctx context.Context) (time.Time, error)

	Close() error
}
