package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	slot        TEXT NOT NULL CHECK(slot IN ('current', 'previous')),
	position    INTEGER NOT NULL,
	created_at  TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	destination TEXT NOT NULL DEFAULT '',
	travel_date TEXT NOT NULL DEFAULT '',
	pax         INTEGER NOT NULL DEFAULT 0,
	budget      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT '',
	owner       TEXT NOT NULL DEFAULT '',
	remarks     TEXT NOT NULL DEFAULT '',
	row_index   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (slot, position)
);

CREATE TABLE IF NOT EXISTS snapshot_meta (
	slot        TEXT PRIMARY KEY CHECK(slot IN ('current', 'previous')),
	captured_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS mutations (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	id             TEXT NOT NULL UNIQUE,
	op             TEXT NOT NULL CHECK(op IN ('append', 'update')),
	key_created_at TEXT NOT NULL DEFAULT '',
	key_name       TEXT NOT NULL DEFAULT '',
	fields         TEXT NOT NULL DEFAULT '{}',
	lead           TEXT NOT NULL DEFAULT '',
	spreadsheet_id TEXT NOT NULL DEFAULT '',
	enqueued_at    DATETIME NOT NULL,
	attempts       INTEGER NOT NULL DEFAULT 0,
	last_error     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS deliveries (
	row_id       TEXT PRIMARY KEY,
	notif_id     TEXT NOT NULL,
	recipient    TEXT NOT NULL,
	source       TEXT NOT NULL,
	action       TEXT NOT NULL,
	category     TEXT NOT NULL,
	priority     TEXT NOT NULL,
	title        TEXT NOT NULL,
	body         TEXT NOT NULL DEFAULT '',
	deep_route   TEXT NOT NULL DEFAULT '',
	lead_created TEXT NOT NULL DEFAULT '',
	lead_name    TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL,
	delivered_at DATETIME NOT NULL,
	read         INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1))
);

CREATE TABLE IF NOT EXISTS settings (
	id      INTEGER PRIMARY KEY CHECK(id = 1),
	payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deliveries_notif ON deliveries(notif_id, delivered_at);
CREATE INDEX IF NOT EXISTS idx_deliveries_read ON deliveries(recipient, read);
CREATE INDEX IF NOT EXISTS idx_deliveries_delivered ON deliveries(delivered_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS scheduled (
	id            TEXT PRIMARY KEY,
	recipient     TEXT NOT NULL,
	source        TEXT NOT NULL,
	action        TEXT NOT NULL,
	category      TEXT NOT NULL,
	priority      TEXT NOT NULL,
	title         TEXT NOT NULL,
	body          TEXT NOT NULL DEFAULT '',
	deep_route    TEXT NOT NULL DEFAULT '',
	lead_created  TEXT NOT NULL DEFAULT '',
	lead_name     TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL,
	scheduled_for DATETIME NOT NULL,
	digest        INTEGER NOT NULL DEFAULT 0 CHECK(digest IN (0, 1))
);

CREATE TABLE IF NOT EXISTS snoozes (
	lead_created TEXT NOT NULL,
	lead_name    TEXT NOT NULL,
	until        DATETIME NOT NULL,
	PRIMARY KEY (lead_created, lead_name)
);

CREATE INDEX IF NOT EXISTS idx_scheduled_due ON scheduled(scheduled_for);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
