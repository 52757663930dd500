package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// csvHeader fixes the column order for both directions.
var csvHeader = []string{"title", "body", "mood", "entry_date", "pinned", "tags"}

// csvTagSeparator joins multi-valued tags into a single CSV cell. Tag
// names are normalized lowercase words, so the pipe cannot collide.
const csvTagSeparator = "|"

// RenderCSV serializes the document as a header row plus one row per
// entry, tags pipe-joined. CSV drops the document envelope (version,
// export time); use JSON when those must survive the round trip.
func RenderCSV(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range doc.Entries {
		row := []string{
			r.Title,
			r.Body,
			r.Mood,
			r.EntryDate,
			strconv.FormatBool(r.Pinned),
			strings.Join(r.Tags, csvTagSeparator),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseCSV decodes a document rendered by RenderCSV. The header must
// match exactly; every row is checked field by field before acceptance.
// The returned document carries a zero ExportedAt since CSV does not
// store one.
func ParseCSV(data []byte) (Document, error) {
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return Document{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return Document{}, fmt.Errorf("parse csv: missing header row")
	}
	if !slices.Equal(rows[0], csvHeader) {
		return Document{}, fmt.Errorf("parse csv: unexpected header %v", rows[0])
	}

	doc := Document{
		Version: DocumentVersion,
		Entries: make([]Record, 0, len(rows)-1),
	}
	for i, row := range rows[1:] {
		if _, err := time.Parse("2006-01-02", row[3]); err != nil {
			return Document{}, fmt.Errorf("parse csv row %d: entry_date %q: want YYYY-MM-DD", i+1, row[3])
		}
		pinned, err := strconv.ParseBool(row[4])
		if err != nil {
			return Document{}, fmt.Errorf("parse csv row %d: pinned: %w", i+1, err)
		}
		tags := []string{}
		if row[5] != "" {
			tags = strings.Split(row[5], csvTagSeparator)
		}
		doc.Entries = append(doc.Entries, Record{
			Title:     row[0],
			Body:      row[1],
			Mood:      row[2],
			EntryDate: row[3],
			Pinned:    pinned,
			Tags:      tags,
		})
	}
	return doc, nil
}
