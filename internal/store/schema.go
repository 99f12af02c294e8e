package store

// PostgresSchema creates the tables used by the Postgres backend.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	dedup_key TEXT NOT NULL UNIQUE,
	guid TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	link TEXT NOT NULL,
	snippet TEXT NOT NULL DEFAULT '',
	original_snippet TEXT NOT NULL DEFAULT '',
	summary_short TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	summary_long TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	pub_date TIMESTAMPTZ NOT NULL,
	feed_title TEXT NOT NULL DEFAULT '',
	feed_url TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	used_full_content BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON articles (pub_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_category ON articles (category)`,
	`CREATE TABLE IF NOT EXISTS feeds (
	feed_url TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	site_url TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	last_fetched_at TIMESTAMPTZ
)`,
}

// SQLiteSchema creates the tables used by the SQLite backend. Timestamps are
// TEXT in SQLiteTimeLayout.
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	dedup_key TEXT NOT NULL UNIQUE,
	guid TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	link TEXT NOT NULL,
	snippet TEXT NOT NULL DEFAULT '',
	original_snippet TEXT NOT NULL DEFAULT '',
	summary_short TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	summary_long TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	pub_date TEXT NOT NULL,
	feed_title TEXT NOT NULL DEFAULT '',
	feed_url TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	used_full_content INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON articles (pub_date)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_category ON articles (category)`,
	`CREATE TABLE IF NOT EXISTS feeds (
	feed_url TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	site_url TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	last_fetched_at TEXT
)`,
}
