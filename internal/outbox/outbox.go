// Package outbox is the write path to the remote store. Writes are tried
// directly when possible; writes that fail for transient reasons are
// queued durably and replayed in order once the remote is reachable.
package outbox

import (
	"context"
	"fmt"
	gosync "sync"

	"go.uber.org/zap"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/source"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/store"
)

// FlushReport summarizes one replay pass over the queue.
type FlushReport struct {
	// Replayed counts mutations confirmed and removed.
	Replayed int

	// Failed counts mutations whose replay attempt failed this pass.
	Failed int

	// Remaining counts mutations still queued after the pass.
	Remaining int
}

// Outbox owns the durable mutation queue. All writes to the remote store
// go through it so that queue order is the write order.
type Outbox struct {
	store  store.Store
	remote source.RemoteStore
	book   string
	log    *zap.Logger

	// mu serializes submits and flushes; concurrent replays of the same
	// queue would duplicate appends.
	mu gosync.Mutex
}

// New creates an outbox over the given queue store and remote. book is
// the spreadsheet ID queued writes are pinned to, so a config change
// between enqueue and replay cannot redirect them to a different book.
func New(st store.Store, remote source.RemoteStore, book string, log *zap.Logger) *Outbox {
	return &Outbox{
		store:  st,
		remote: remote,
		book:   book,
		log:    log,
	}
}

// AppendLead submits a new lead row. The returned bool is true when the
// write was queued for later replay instead of applied.
func (o *Outbox) AppendLead(ctx context.Context, lead model.Lead) (bool, error) {
	return o.Submit(ctx, model.QueuedMutation{
		Op:   model.OpAppend,
		Lead: &lead,
	})
}

// UpdateLead submits field changes for an existing lead, addressed by
// identity.
func (o *Outbox) UpdateLead(ctx context.Context, key model.LeadKey, fields map[string]string) (bool, error) {
	return o.Submit(ctx, model.QueuedMutation{
		Op:     model.OpUpdate,
		Key:    key,
		Fields: fields,
	})
}

// Submit applies a mutation to the remote store. Transient failures queue
// the mutation for replay and report queued=true; permanent failures are
// returned to the caller and nothing is queued. While older mutations are
// still queued, new ones are queued behind them so writes never reorder.
func (o *Outbox) Submit(ctx context.Context, m model.QueuedMutation) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := validate(m); err != nil {
		return false, err
	}
	if m.SpreadsheetID == "" {
		m.SpreadsheetID = o.book
	}

	pending, err := o.store.Mutations(ctx)
	if err != nil {
		return false, fmt.Errorf("reading outbox: %w", err)
	}
	if len(pending) > 0 {
		if _, err := o.store.EnqueueMutation(ctx, m); err != nil {
			return false, fmt.Errorf("queueing mutation: %w", err)
		}
		o.log.Info("queued lead write behind pending mutations",
			zap.String("op", string(m.Op)),
			zap.Int("pending", len(pending)))
		return true, nil
	}

	applyErr := o.apply(ctx, m)
	if applyErr == nil {
		return false, nil
	}
	if !source.Retryable(applyErr) {
		return false, applyErr
	}

	m.Attempts = 1
	m.LastError = applyErr.Error()
	if _, err := o.store.EnqueueMutation(ctx, m); err != nil {
		return false, fmt.Errorf("queueing mutation after failure: %w", err)
	}

	o.log.Info("queued lead write for replay",
		zap.String("op", string(m.Op)),
		zap.String("cause", applyErr.Error()))
	return true, nil
}

// Pending returns the queued mutations in replay order.
func (o *Outbox) Pending(ctx context.Context) ([]model.QueuedMutation, error) {
	return o.store.Mutations(ctx)
}

// Flush replays queued mutations in order. Failed mutations stay queued
// with their attempt count bumped; the queue never drops anything here.
// A network, rate-limit, or auth failure ends the pass early since every
// later replay would hit the same wall. The error return is reserved for
// local storage failures and cancellation.
func (o *Outbox) Flush(ctx context.Context) (FlushReport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	pending, err := o.store.Mutations(ctx)
	if err != nil {
		return FlushReport{}, fmt.Errorf("reading outbox: %w", err)
	}

	report := FlushReport{Remaining: len(pending)}
	if len(pending) == 0 {
		return report, nil
	}

	// Writes to one lead must replay in order: once one fails, later
	// writes to the same lead are skipped for this pass.
	blocked := make(map[model.LeadKey]bool)

	for _, m := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		key := mutationKey(m)
		if !key.IsZero() && blocked[key] {
			continue
		}

		if m.SpreadsheetID != "" && o.book != "" && m.SpreadsheetID != o.book {
			report.Failed++
			msg := fmt.Sprintf("queued against spreadsheet %q, current is %q", m.SpreadsheetID, o.book)
			if err := o.store.RecordMutationFailure(ctx, m.ID, msg); err != nil {
				o.log.Warn("recording replay failure failed", zap.Error(err))
			}
			if !key.IsZero() {
				blocked[key] = true
			}
			o.log.Warn("mutation pinned to another book", zap.String("id", m.ID), zap.String("book", m.SpreadsheetID))
			continue
		}

		applyErr := o.apply(ctx, m)
		if applyErr == nil {
			if err := o.store.RemoveMutation(ctx, m.ID); err != nil {
				return report, fmt.Errorf("removing replayed mutation: %w", err)
			}
			report.Replayed++
			report.Remaining--
			continue
		}

		report.Failed++
		if err := o.store.RecordMutationFailure(ctx, m.ID, applyErr.Error()); err != nil {
			o.log.Warn("recording replay failure failed", zap.Error(err))
		}

		switch source.KindOf(applyErr) {
		case source.KindNetwork, source.KindRateLimited, source.KindAuth:
			o.log.Info("stopping outbox replay",
				zap.String("cause", applyErr.Error()),
				zap.Int("remaining", report.Remaining))
			return report, nil
		}

		if !key.IsZero() {
			blocked[key] = true
		}
		o.log.Warn("replaying mutation failed",
			zap.String("id", m.ID),
			zap.String("op", string(m.Op)),
			zap.Int("attempts", m.Attempts+1),
			zap.Error(applyErr))
	}

	return report, nil
}

// apply performs the remote write for a single mutation.
func (o *Outbox) apply(ctx context.Context, m model.QueuedMutation) error {
	switch m.Op {
	case model.OpAppend:
		return o.remote.Append(ctx, *m.Lead)
	case model.OpUpdate:
		return o.remote.UpdateByIdentity(ctx, m.Key, m.Fields)
	}
	return fmt.Errorf("unknown mutation op %q", m.Op)
}

// validate rejects malformed mutations before they touch the queue.
func validate(m model.QueuedMutation) error {
	switch m.Op {
	case model.OpAppend:
		if m.Lead == nil {
			return fmt.Errorf("append mutation carries no lead")
		}
		if m.Lead.Identity().IsZero() {
			return fmt.Errorf("append mutation needs a creation timestamp and a name")
		}
	case model.OpUpdate:
		if m.Key.IsZero() {
			return fmt.Errorf("update mutation carries no lead key")
		}
		if len(m.Fields) == 0 {
			return fmt.Errorf("update mutation carries no fields")
		}
	default:
		return fmt.Errorf("unknown mutation op %q", m.Op)
	}
	return nil
}

// mutationKey returns the lead identity a mutation touches.
func mutationKey(m model.QueuedMutation) model.LeadKey {
	if m.Op == model.OpAppend && m.Lead != nil {
		return m.Lead.Identity()
	}
	return m.Key
}
