package export

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RenderJSON serializes the document with two-space indentation and
// HTML escaping disabled, so entry bodies keep < > & readable in the
// output file. Output is deterministic for a fixed ExportedAt.
func RenderJSON(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseJSON validates data against the document schema, then decodes
// it. Nothing is decoded from a document that fails validation, so
// import flows can trust every field they see.
func ParseJSON(data []byte) (Document, error) {
	if err := validateDocument(data); err != nil {
		return Document{}, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}
