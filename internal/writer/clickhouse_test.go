package writer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBatch records appended rows; unimplemented driver.Batch methods panic
type fakeBatch struct {
	driver.Batch

	rows    [][]any
	failOn  string
	sendErr error
	sent    bool
	aborted bool
}

func (b *fakeBatch) Append(v ...any) error {
	if id, _ := v[0].(string); id == b.failOn {
		return errors.New("clickhouse [Append]: converting string to Int8 is unsupported")
	}
	b.rows = append(b.rows, v)
	return nil
}

func (b *fakeBatch) Send() error {
	b.sent = true
	return b.sendErr
}

func (b *fakeBatch) Abort() error {
	b.aborted = true
	return nil
}

func newFakeClickHouse(batch *fakeBatch) (*ClickHouseBackend, *[]string) {
	var queries []string
	fixed := time.Date(2015, 3, 12, 10, 0, 0, 0, time.UTC)
	backend := &ClickHouseBackend{
		prepare: func(ctx context.Context, query string) (driver.Batch, error) {
			queries = append(queries, query)
			return batch, nil
		},
		database: "logs",
		now:      func() time.Time { return fixed },
	}
	return backend, &queries
}

func TestClickHouseBackend_Bulk(t *testing.T) {
	batch := &fakeBatch{}
	backend, queries := newFakeClickHouse(batch)

	doc := domain.NewDocument(0)
	doc.AddLine(" alice: hi")
	doc.AddLine(" bob: hello")

	result, err := backend.Bulk(context.Background(), "logindex", bulkItems(t, doc, domain.NewDocument(1)))
	require.NoError(t, err)

	assert.Equal(t, []string{"INSERT INTO logs.documents"}, *queries)
	assert.True(t, batch.sent)
	assert.Empty(t, result.Failures)
	require.Len(t, batch.rows, 2)

	row := batch.rows[0]
	assert.Equal(t, "0", row[0])
	assert.Equal(t, []string{" alice: hi", " bob: hello"}, row[1])
	assert.Equal(t, uint32(2), row[2])
	assert.Len(t, row[3], 64)
	assert.Equal(t, time.Date(2015, 3, 12, 10, 0, 0, 0, time.UTC), row[4])

	// empty documents are stored with an empty array, not NULL
	assert.Equal(t, []string{}, batch.rows[1][1])
	assert.Equal(t, uint32(0), batch.rows[1][2])
}

func TestClickHouseBackend_AppendFailureIsItemFailure(t *testing.T) {
	batch := &fakeBatch{failOn: "1"}
	backend, _ := newFakeClickHouse(batch)

	items := bulkItems(t, domain.NewDocument(0), domain.NewDocument(1), domain.NewDocument(2))
	result, err := backend.Bulk(context.Background(), "logindex", items)
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "1", result.Failures[0].ID)
	assert.Contains(t, result.Failures[0].Reason, "failed to append")
	assert.Len(t, batch.rows, 2)
	assert.True(t, batch.sent)
}

func TestClickHouseBackend_NothingAppended(t *testing.T) {
	batch := &fakeBatch{failOn: "0"}
	backend, _ := newFakeClickHouse(batch)

	result, err := backend.Bulk(context.Background(), "logindex", bulkItems(t, domain.NewDocument(0)))
	require.NoError(t, err)

	assert.Len(t, result.Failures, 1)
	assert.True(t, batch.aborted)
	assert.False(t, batch.sent)
}

func TestClickHouseBackend_SendFailure(t *testing.T) {
	batch := &fakeBatch{sendErr: errors.New("code: 999, message: connection lost")}
	backend, _ := newFakeClickHouse(batch)

	_, err := backend.Bulk(context.Background(), "logindex", bulkItems(t, domain.NewDocument(0)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send batch")
}

func TestCalculateDocumentHash(t *testing.T) {
	a := domain.WireDocument{ID: "1", Text: []string{"ab", "c"}}
	b := domain.WireDocument{ID: "1", Text: []string{"a", "bc"}}
	c := domain.WireDocument{ID: "2", Text: []string{"ab", "c"}}

	assert.Equal(t, calculateDocumentHash(a), calculateDocumentHash(a))
	assert.NotEqual(t, calculateDocumentHash(a), calculateDocumentHash(b))
	assert.NotEqual(t, calculateDocumentHash(a), calculateDocumentHash(c))
}
