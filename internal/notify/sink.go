// Package notify delivers notifications: it filters candidates through
// the user's settings, suppresses duplicates, defers or digests around the
// do-not-disturb window, and keeps the inbox and badge in sync.
package notify

import (
	"go.uber.org/zap"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
)

// Sink presents notifications to the user. Implementations wrap whatever
// surface the platform offers; the engine only ever talks to this
// interface.
type Sink interface {
	// Present shows a single notification.
	Present(n model.Notification)

	// SetBadgeCount updates the app's unread-count badge.
	SetBadgeCount(count int)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Present(model.Notification) {}

func (NopSink) SetBadgeCount(int) {}

// LogSink writes notifications to the log, standing in for a platform
// surface when the engine runs as a plain daemon.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Present(n model.Notification) {
	s.Log.Info("notification",
		zap.String("id", n.ID),
		zap.String("category", string(n.Category)),
		zap.String("priority", string(n.Priority)),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
	)
}

func (s LogSink) SetBadgeCount(count int) {
	s.Log.Info("badge updated", zap.Int("unread", count))
}
