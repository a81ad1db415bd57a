package store

import "database/sql"

// Schema is the complete crawld link-table schema. The column names and
// status values are the compatibility surface with existing databases.
const Schema = `
CREATE TABLE IF NOT EXISTS crawled_links (
    url            TEXT PRIMARY KEY,
    title          TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'pending',
    discovered_at  INTEGER NOT NULL,
    crawled_at     INTEGER,
    error_message  TEXT NOT NULL DEFAULT '',
    markdown_path  TEXT NOT NULL DEFAULT '',
    html_path      TEXT NOT NULL DEFAULT '',
    file_size      INTEGER NOT NULL DEFAULT 0,
    content_type   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_links_status ON crawled_links(status);
CREATE INDEX IF NOT EXISTS idx_links_discovered ON crawled_links(discovered_at);
`

// ApplySchema creates the table and indexes on the given database.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
