package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// StatusError is a non-2xx answer to a whole bulk request
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// ElasticsearchBackend sends NDJSON _bulk requests
type ElasticsearchBackend struct {
	client *elasticsearch.Client
}

// NewElasticsearchBackend creates a backend over an Elasticsearch client
func NewElasticsearchBackend(client *elasticsearch.Client) *ElasticsearchBackend {
	return &ElasticsearchBackend{client: client}
}

// Name implements Backend
func (b *ElasticsearchBackend) Name() string {
	return "elasticsearch"
}

type bulkAction struct {
	Index bulkActionMeta `json:"index"`
}

type bulkActionMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

type bulkResponse struct {
	Errors bool                                `json:"errors"`
	Items  []map[string]bulkResponseItemResult `json:"items"`
}

type bulkResponseItemResult struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

// Bulk implements Backend
func (b *ElasticsearchBackend) Bulk(ctx context.Context, index string, items []BulkItem) (*BulkResult, error) {
	body, err := encodeBulkBody(index, items)
	if err != nil {
		return nil, err
	}

	req := esapi.BulkRequest{
		Index: index,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, b.client)
	if err != nil {
		return nil, fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &StatusError{Code: res.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode bulk response: %w", err)
	}

	result := &BulkResult{Items: len(items)}
	if !parsed.Errors {
		return result, nil
	}

	for _, entry := range parsed.Items {
		for _, item := range entry {
			if item.Status >= 200 && item.Status < 300 && item.Error == nil {
				continue
			}
			reason := "unknown error"
			if item.Error != nil {
				reason = item.Error.Type + ": " + item.Error.Reason
			}
			result.Failures = append(result.Failures, ItemFailure{
				ID:     item.ID,
				Status: item.Status,
				Reason: reason,
			})
		}
	}

	return result, nil
}

// encodeBulkBody builds the NDJSON payload: an action line then the
// document source, each terminated by a newline
func encodeBulkBody(index string, items []BulkItem) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for _, item := range items {
		if err := enc.Encode(bulkAction{Index: bulkActionMeta{Index: index, ID: item.ID}}); err != nil {
			return nil, fmt.Errorf("failed to encode bulk action for %s: %w", item.ID, err)
		}
		buf.Write(item.Body)
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}
