package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// WireDocument is the JSON document sent to the search backend.
// Unknown fields are ignored when decoding.
type WireDocument struct {
	ID   string   `json:"id,omitempty"`
	Text []string `json:"text,omitempty"`
}

// Marshal encodes the wire document as JSON
func (w WireDocument) Marshal() ([]byte, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document %s: %w", w.ID, err)
	}
	return data, nil
}

// UnmarshalWire decodes a wire document from JSON
func UnmarshalWire(data []byte) (WireDocument, error) {
	var w WireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return WireDocument{}, fmt.Errorf("failed to decode document: %w", err)
	}
	return w, nil
}

// Document converts the wire form back to a Document.
// Lines are copied verbatim: they were already sanitized on insertion.
func (w WireDocument) Document() (*Document, error) {
	id, err := strconv.Atoi(w.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid document id %q: %w", w.ID, err)
	}
	doc := NewDocument(id)
	if len(w.Text) > 0 {
		doc.Lines = make([]string, len(w.Text))
		copy(doc.Lines, w.Text)
	}
	return doc, nil
}
