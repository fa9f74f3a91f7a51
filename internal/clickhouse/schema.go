package clickhouse

import (
	"context"
	"fmt"
)

// documentsTableDDL creates the table read by the ClickHouse bulk backend.
// ReplacingMergeTree keeps the latest row per id, so re-indexing a file
// does not duplicate documents.
const documentsTableDDL = `CREATE TABLE IF NOT EXISTS %s.documents
(
    id          String,
    text        Array(String),
    line_count  UInt32,
    record_hash FixedString(64),
    indexed_at  DateTime64(3, 'UTC')
)
ENGINE = ReplacingMergeTree(indexed_at)
ORDER BY id`

// EnsureSchema creates the database and the documents table when missing
func (c *Client) EnsureSchema(ctx context.Context) error {
	if err := c.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", c.database)); err != nil {
		return fmt.Errorf("failed to create database %s: %w", c.database, err)
	}
	if err := c.Exec(ctx, fmt.Sprintf(documentsTableDDL, c.database)); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	c.logger.Debug().
		Str("database", c.database).
		Msg("ClickHouse schema ensured")
	return nil
}
