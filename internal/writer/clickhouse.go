package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// DocumentsTable is the ClickHouse table holding indexed documents
const DocumentsTable = "documents"

// ClickHouseBackend inserts documents into <database>.documents.
// Every index shares that table; rows are deduplicated by id.
type ClickHouseBackend struct {
	prepare  func(ctx context.Context, query string) (driver.Batch, error)
	database string
	now      func() time.Time
}

// NewClickHouseBackend creates a backend over an open ClickHouse connection
func NewClickHouseBackend(conn clickhouse.Conn, database string) *ClickHouseBackend {
	return &ClickHouseBackend{
		prepare: func(ctx context.Context, query string) (driver.Batch, error) {
			return conn.PrepareBatch(ctx, query)
		},
		database: database,
		now:      time.Now,
	}
}

// Name implements Backend
func (b *ClickHouseBackend) Name() string {
	return "clickhouse"
}

// Bulk implements Backend. Rows the driver refuses to append are reported
// as item failures; a failed send fails the whole request.
func (b *ClickHouseBackend) Bulk(ctx context.Context, index string, items []BulkItem) (*BulkResult, error) {
	query := fmt.Sprintf("INSERT INTO %s.%s", b.database, DocumentsTable)
	batch, err := b.prepare(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare batch: %w", err)
	}

	result := &BulkResult{Items: len(items)}
	indexedAt := b.now().UTC()
	appended := 0

	for _, item := range items {
		text := item.Doc.Text
		if text == nil {
			text = []string{}
		}
		err := batch.Append(
			item.ID,
			text,
			uint32(len(text)),
			calculateDocumentHash(item.Doc),
			indexedAt,
		)
		if err != nil {
			result.Failures = append(result.Failures, ItemFailure{
				ID:     item.ID,
				Reason: fmt.Sprintf("failed to append to batch: %v", err),
			})
			continue
		}
		appended++
	}

	if appended == 0 {
		_ = batch.Abort()
		return result, nil
	}

	if err := batch.Send(); err != nil {
		return nil, fmt.Errorf("failed to send batch: %w", err)
	}

	return result, nil
}
