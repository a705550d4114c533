package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
)

// lastSyncKey is the meta table key holding the last successful sync time.
const lastSyncKey = "last_sync"

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// ReplaceSnapshot rotates the current snapshot into the previous slot and
// installs snap as the new current snapshot, all in one transaction.
func (s *SQLiteStore) ReplaceSnapshot(ctx context.Context, snap model.Snapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rotate := []string{
		"DELETE FROM leads WHERE slot = 'previous'",
		"DELETE FROM snapshot_meta WHERE slot = 'previous'",
		"UPDATE leads SET slot = 'previous' WHERE slot = 'current'",
		"UPDATE snapshot_meta SET slot = 'previous' WHERE slot = 'current'",
	}
	for _, q := range rotate {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("rotating snapshot slots: %w", err)
		}
	}

	const query = `
		INSERT INTO leads (
			slot, position, created_at, name, phone, destination,
			travel_date, pax, budget, status, owner, remarks, row_index
		) VALUES (
			'current', ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?, ?
		)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing lead insert statement: %w", err)
	}
	defer stmt.Close()

	for i, lead := range snap.Leads {
		_, err = stmt.ExecContext(ctx,
			i, lead.CreatedAt, lead.Name, lead.Phone, lead.Destination,
			lead.TravelDate, lead.Pax, lead.Budget, lead.Status,
			lead.Owner, lead.Remarks, lead.RowIndex,
		)
		if err != nil {
			return fmt.Errorf("inserting lead row %d: %w", i, err)
		}
	}

	capturedAt := snap.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO snapshot_meta (slot, captured_at) VALUES ('current', ?)",
		capturedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording snapshot capture time: %w", err)
	}

	return tx.Commit()
}

// CurrentSnapshot returns the most recently stored snapshot. A zero
// snapshot is returned when no sync has completed yet.
func (s *SQLiteStore) CurrentSnapshot(ctx context.Context) (model.Snapshot, error) {
	return s.snapshotBySlot(ctx, "current")
}

// PreviousSnapshot returns the snapshot that preceded the current one.
func (s *SQLiteStore) PreviousSnapshot(ctx context.Context) (model.Snapshot, error) {
	return s.snapshotBySlot(ctx, "previous")
}

func (s *SQLiteStore) snapshotBySlot(ctx context.Context, slot string) (model.Snapshot, error) {
	var capturedAt time.Time
	err := s.db.QueryRowxContext(ctx,
		"SELECT captured_at FROM snapshot_meta WHERE slot = ?", slot,
	).Scan(&capturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, nil
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("reading %s snapshot meta: %w", slot, err)
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT created_at, name, phone, destination, travel_date,
		       pax, budget, status, owner, remarks, row_index
		FROM leads WHERE slot = ? ORDER BY position`, slot)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("querying %s snapshot leads: %w", slot, err)
	}
	defer rows.Close()

	snap := model.Snapshot{CapturedAt: capturedAt}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return model.Snapshot{}, err
		}
		snap.Leads = append(snap.Leads, lead)
	}

	return snap, rows.Err()
}

// EnqueueMutation appends a mutation to the durable write queue.
// If the mutation has no ID, a new UUID is generated.
func (s *SQLiteStore) EnqueueMutation(
	ctx context.Context,
	m model.QueuedMutation,
) (model.QueuedMutation, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.EnqueuedAt.IsZero() {
		m.EnqueuedAt = time.Now()
	}

	fieldsJSON := "{}"
	if len(m.Fields) > 0 {
		b, err := json.Marshal(m.Fields)
		if err != nil {
			return model.QueuedMutation{}, fmt.Errorf("marshaling mutation fields: %w", err)
		}
		fieldsJSON = string(b)
	}

	leadJSON := ""
	if m.Lead != nil {
		b, err := json.Marshal(m.Lead)
		if err != nil {
			return model.QueuedMutation{}, fmt.Errorf("marshaling mutation lead: %w", err)
		}
		leadJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mutations (
			id, op, key_created_at, key_name, fields, lead,
			spreadsheet_id, enqueued_at, attempts, last_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, string(m.Op), m.Key.CreatedAt, m.Key.NameFold, fieldsJSON, leadJSON,
		m.SpreadsheetID, m.EnqueuedAt.UTC(), m.Attempts, m.LastError,
	)
	if err != nil {
		return model.QueuedMutation{}, fmt.Errorf("enqueueing mutation: %w", err)
	}

	return m, nil
}

// Mutations returns all queued mutations in enqueue order.
func (s *SQLiteStore) Mutations(ctx context.Context) ([]model.QueuedMutation, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, op, key_created_at, key_name, fields, lead,
		       spreadsheet_id, enqueued_at, attempts, last_error
		FROM mutations ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying mutations: %w", err)
	}
	defer rows.Close()

	var mutations []model.QueuedMutation
	for rows.Next() {
		m, err := scanMutation(rows)
		if err != nil {
			return nil, err
		}
		mutations = append(mutations, m)
	}

	return mutations, rows.Err()
}

// RemoveMutation deletes a replayed mutation from the queue.
func (s *SQLiteStore) RemoveMutation(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM mutations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("removing mutation %s: %w", id, err)
	}
	return nil
}

// RecordMutationFailure bumps the attempt counter and stores the most
// recent replay error. The mutation stays in the queue.
func (s *SQLiteStore) RecordMutationFailure(
	ctx context.Context,
	id string,
	lastError string,
) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE mutations SET attempts = attempts + 1, last_error = ? WHERE id = ?",
		lastError, id,
	)
	if err != nil {
		return fmt.Errorf("recording mutation failure %s: %w", id, err)
	}
	return nil
}

// RecordDelivery inserts a delivery log row for a presented notification.
func (s *SQLiteStore) RecordDelivery(
	ctx context.Context,
	n model.Notification,
	deliveredAt time.Time,
) error {
	if n.ID == "" {
		n.ID = n.Key.Hash()
	}

	var route, leadCreated, leadName string
	if n.DeepLink != nil {
		route = n.DeepLink.Route
		leadCreated = n.DeepLink.Lead.CreatedAt
		leadName = n.DeepLink.Lead.NameFold
	}

	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = deliveredAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (
			row_id, notif_id, recipient, source, action,
			category, priority, title, body,
			deep_route, lead_created, lead_name,
			created_at, delivered_at, read
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), n.ID, n.Key.Recipient, n.Key.Source, n.Key.Action,
		string(n.Category), string(n.Priority), n.Title, n.Body,
		route, leadCreated, leadName,
		createdAt.UTC(), deliveredAt.UTC(), boolToInt(n.Read),
	)
	if err != nil {
		return fmt.Errorf("recording delivery: %w", err)
	}

	return nil
}

// DeliveredSince reports whether a notification with the given key has
// been delivered after since. A zero since checks the whole log.
func (s *SQLiteStore) DeliveredSince(
	ctx context.Context,
	key model.NotificationKey,
	since time.Time,
) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM deliveries WHERE notif_id = ? AND delivered_at > ?",
		key.Hash(), since.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("checking delivery history: %w", err)
	}
	return count > 0, nil
}

// Inbox returns the recipient's delivered notifications, newest first.
// A limit of 0 returns all of them.
func (s *SQLiteStore) Inbox(
	ctx context.Context,
	recipient string,
	limit int,
) ([]model.Notification, error) {
	query := `
		SELECT notif_id, recipient, source, action, category, priority,
		       title, body, deep_route, lead_created, lead_name,
		       created_at, delivered_at, read
		FROM deliveries WHERE recipient = ? ORDER BY delivered_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, recipient)
	if err != nil {
		return nil, fmt.Errorf("querying inbox: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// UnreadNotifications returns the recipient's unread notifications,
// newest first.
func (s *SQLiteStore) UnreadNotifications(
	ctx context.Context,
	recipient string,
) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT notif_id, recipient, source, action, category, priority,
		       title, body, deep_route, lead_created, lead_name,
		       created_at, delivered_at, read
		FROM deliveries WHERE recipient = ? AND read = 0
		ORDER BY delivered_at DESC`, recipient)
	if err != nil {
		return nil, fmt.Errorf("querying unread notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkNotificationRead marks every delivery of the given notification as
// read. Repeat deliveries of one logical alert share its ID.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE deliveries SET read = 1 WHERE notif_id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	return nil
}

// UnreadCount returns the recipient's number of unread deliveries.
func (s *SQLiteStore) UnreadCount(ctx context.Context, recipient string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM deliveries WHERE recipient = ? AND read = 0",
		recipient,
	)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// PruneDeliveries deletes delivery rows older than before. Broadcast rows
// are kept so their duplicate suppression outlives retention.
func (s *SQLiteStore) PruneDeliveries(ctx context.Context, before time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM deliveries WHERE delivered_at < ? AND category != ?",
		before.UTC(), string(model.CategoryBroadcast),
	)
	if err != nil {
		return fmt.Errorf("pruning deliveries: %w", err)
	}
	return nil
}

// ScheduleNotification records n for delivery at n.ScheduledFor.
// Re-scheduling the same notification ID replaces the earlier entry.
func (s *SQLiteStore) ScheduleNotification(
	ctx context.Context,
	n model.Notification,
	digest bool,
) error {
	if n.ID == "" {
		n.ID = n.Key.Hash()
	}

	var route, leadCreated, leadName string
	if n.DeepLink != nil {
		route = n.DeepLink.Route
		leadCreated = n.DeepLink.Lead.CreatedAt
		leadName = n.DeepLink.Lead.NameFold
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scheduled (
			id, recipient, source, action, category, priority,
			title, body, deep_route, lead_created, lead_name,
			created_at, scheduled_for, digest
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Key.Recipient, n.Key.Source, n.Key.Action,
		string(n.Category), string(n.Priority),
		n.Title, n.Body, route, leadCreated, leadName,
		n.CreatedAt.UTC(), n.ScheduledFor.UTC(), boolToInt(digest),
	)
	if err != nil {
		return fmt.Errorf("scheduling notification: %w", err)
	}

	return nil
}

// DueScheduled returns scheduled notifications whose delivery time has
// arrived, oldest first.
func (s *SQLiteStore) DueScheduled(
	ctx context.Context,
	now time.Time,
) ([]ScheduledItem, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, recipient, source, action, category, priority,
		       title, body, deep_route, lead_created, lead_name,
		       created_at, scheduled_for, digest
		FROM scheduled WHERE scheduled_for <= ?
		ORDER BY scheduled_for, id`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying due scheduled notifications: %w", err)
	}
	defer rows.Close()

	var items []ScheduledItem
	for rows.Next() {
		item, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// RemoveScheduled deletes a scheduled notification by ID.
func (s *SQLiteStore) RemoveScheduled(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM scheduled WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("removing scheduled notification %s: %w", id, err)
	}
	return nil
}

// SetSnooze records (or replaces) a per-lead snooze that lasts until the
// given time.
func (s *SQLiteStore) SetSnooze(
	ctx context.Context,
	key model.LeadKey,
	until time.Time,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snoozes (lead_created, lead_name, until)
		VALUES (?, ?, ?)`,
		key.CreatedAt, key.NameFold, until.UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting snooze for %s: %w", key, err)
	}
	return nil
}

// ClearSnooze removes the snooze for a lead, if any.
func (s *SQLiteStore) ClearSnooze(ctx context.Context, key model.LeadKey) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM snoozes WHERE lead_created = ? AND lead_name = ?",
		key.CreatedAt, key.NameFold,
	)
	if err != nil {
		return fmt.Errorf("clearing snooze for %s: %w", key, err)
	}
	return nil
}

// ActiveSnoozes returns the snoozes that have not yet expired at now,
// keyed by lead identity.
func (s *SQLiteStore) ActiveSnoozes(
	ctx context.Context,
	now time.Time,
) (map[model.LeadKey]time.Time, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT lead_created, lead_name, until FROM snoozes WHERE until > ?",
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying snoozes: %w", err)
	}
	defer rows.Close()

	snoozes := make(map[model.LeadKey]time.Time)
	for rows.Next() {
		var (
			key   model.LeadKey
			until time.Time
		)
		if err := rows.Scan(&key.CreatedAt, &key.NameFold, &until); err != nil {
			return nil, fmt.Errorf("scanning snooze row: %w", err)
		}
		snoozes[key] = until
	}

	return snoozes, rows.Err()
}

// NotificationSettings returns the stored notification preferences, or
// the defaults when none have been saved yet.
func (s *SQLiteStore) NotificationSettings(ctx context.Context) (model.NotificationSettings, error) {
	var payload string
	err := s.db.QueryRowxContext(ctx, "SELECT payload FROM settings WHERE id = 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultNotificationSettings(), nil
	}
	if err != nil {
		return model.NotificationSettings{}, fmt.Errorf("reading notification settings: %w", err)
	}

	var settings model.NotificationSettings
	if err := json.Unmarshal([]byte(payload), &settings); err != nil {
		return model.NotificationSettings{}, fmt.Errorf("unmarshaling notification settings: %w", err)
	}
	if settings.PerCategory == nil {
		settings.PerCategory = make(map[model.Category]bool)
	}

	return settings, nil
}

// SaveNotificationSettings persists notification preferences.
func (s *SQLiteStore) SaveNotificationSettings(
	ctx context.Context,
	settings model.NotificationSettings,
) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling notification settings: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO settings (id, payload) VALUES (1, ?)",
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("saving notification settings: %w", err)
	}

	return nil
}

// SeedNotificationSettings stores settings only when no row exists yet,
// so config-file defaults never overwrite the user's saved toggles.
func (s *SQLiteStore) SeedNotificationSettings(
	ctx context.Context,
	settings model.NotificationSettings,
) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling notification settings: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO settings (id, payload) VALUES (1, ?)",
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("seeding notification settings: %w", err)
	}

	return nil
}

// SetLastSync records the completion time of the last successful sync.
func (s *SQLiteStore) SetLastSync(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		lastSyncKey, t.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording last sync time: %w", err)
	}
	return nil
}

// LastSync returns the completion time of the last successful sync, or
// the zero time when no sync has completed yet.
func (s *SQLiteStore) LastSync(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowxContext(ctx,
		"SELECT value FROM meta WHERE key = ?", lastSyncKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading last sync time: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing last sync time: %w", err)
	}

	return t, nil
}

// scanLead scans a lead row from a sqlx.Rows result set.
func scanLead(rows *sqlx.Rows) (model.Lead, error) {
	var lead model.Lead

	err := rows.Scan(
		&lead.CreatedAt, &lead.Name, &lead.Phone, &lead.Destination,
		&lead.TravelDate, &lead.Pax, &lead.Budget, &lead.Status,
		&lead.Owner, &lead.Remarks, &lead.RowIndex,
	)
	if err != nil {
		return model.Lead{}, fmt.Errorf("scanning lead row: %w", err)
	}

	return lead, nil
}

// scanMutation scans a mutation row from a sqlx.Rows result set.
func scanMutation(rows *sqlx.Rows) (model.QueuedMutation, error) {
	var (
		m          model.QueuedMutation
		op         string
		fieldsJSON string
		leadJSON   string
		enqueuedAt time.Time
	)

	err := rows.Scan(
		&m.ID, &op, &m.Key.CreatedAt, &m.Key.NameFold,
		&fieldsJSON, &leadJSON, &m.SpreadsheetID,
		&enqueuedAt, &m.Attempts, &m.LastError,
	)
	if err != nil {
		return model.QueuedMutation{}, fmt.Errorf("scanning mutation row: %w", err)
	}

	m.Op = model.MutationOp(op)
	m.EnqueuedAt = enqueuedAt

	if fieldsJSON != "" && fieldsJSON != "{}" {
		if err := json.Unmarshal([]byte(fieldsJSON), &m.Fields); err != nil {
			return model.QueuedMutation{}, fmt.Errorf("unmarshaling mutation fields: %w", err)
		}
	}
	if leadJSON != "" {
		var lead model.Lead
		if err := json.Unmarshal([]byte(leadJSON), &lead); err != nil {
			return model.QueuedMutation{}, fmt.Errorf("unmarshaling mutation lead: %w", err)
		}
		m.Lead = &lead
	}

	return m, nil
}

// scanDelivery scans a delivery row from a sqlx.Rows result set.
func scanDelivery(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n           model.Notification
		category    string
		priority    string
		route       string
		leadCreated string
		leadName    string
		createdAt   time.Time
		deliveredAt time.Time
		readInt     int
	)

	err := rows.Scan(
		&n.ID, &n.Key.Recipient, &n.Key.Source, &n.Key.Action,
		&category, &priority, &n.Title, &n.Body,
		&route, &leadCreated, &leadName,
		&createdAt, &deliveredAt, &readInt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning delivery row: %w", err)
	}

	n.Category = model.Category(category)
	n.Priority = model.Priority(priority)
	n.Recipient = n.Key.Recipient
	n.CreatedAt = createdAt
	n.Read = readInt != 0
	if route != "" || leadCreated != "" || leadName != "" {
		n.DeepLink = &model.DeepLink{
			Route: route,
			Lead:  model.LeadKey{CreatedAt: leadCreated, NameFold: leadName},
		}
	}

	return n, nil
}

// scanScheduled scans a scheduled notification row from a sqlx.Rows
// result set.
func scanScheduled(rows *sqlx.Rows) (ScheduledItem, error) {
	var (
		item         ScheduledItem
		category     string
		priority     string
		route        string
		leadCreated  string
		leadName     string
		createdAt    time.Time
		scheduledFor time.Time
		digestInt    int
	)

	n := &item.Notification
	err := rows.Scan(
		&n.ID, &n.Key.Recipient, &n.Key.Source, &n.Key.Action,
		&category, &priority, &n.Title, &n.Body,
		&route, &leadCreated, &leadName,
		&createdAt, &scheduledFor, &digestInt,
	)
	if err != nil {
		return ScheduledItem{}, fmt.Errorf("scanning scheduled row: %w", err)
	}

	n.Category = model.Category(category)
	n.Priority = model.Priority(priority)
	n.Recipient = n.Key.Recipient
	n.CreatedAt = createdAt
	n.ScheduledFor = scheduledFor
	if route != "" || leadCreated != "" || leadName != "" {
		n.DeepLink = &model.DeepLink{
			Route: route,
			Lead:  model.LeadKey{CreatedAt: leadCreated, NameFold: leadName},
		}
	}
	item.Digest = digestInt != 0

	return item, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
