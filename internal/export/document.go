// Package export builds, renders, and parses the portable interchange
// documents that move journal entries between installations. Documents
// render to JSON or CSV; the JSON form can additionally be sealed under
// a user-supplied password, independent of the at-rest master
// passphrase.
package export

import (
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/daybookhq/daybook/internal/crypto"
	"github.com/daybookhq/daybook/internal/store"
)

// DocumentVersion is the interchange format version this package
// produces and accepts.
const DocumentVersion = 1

// Document is a complete export: a version marker, the export
// timestamp, and every entry carried.
type Document struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Entries    []Record  `json:"entries"`
}

// Record is one exported entry. IDs and storage timestamps stay behind:
// records carry only the content a receiving installation needs to
// recreate the entry as its own.
type Record struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Mood      string   `json:"mood,omitempty"`
	EntryDate string   `json:"entry_date"`
	Pinned    bool     `json:"pinned,omitempty"`
	Tags      []string `json:"tags"`
}

// NewDocument converts decrypted entries into an interchange document.
// All text is NFC normalized so two installations render byte-identical
// documents for the same content, and Tags is always non-nil so the
// JSON form shows [] rather than null.
func NewDocument(entries []store.Entry, exportedAt time.Time) Document {
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, Record{
			Title:     norm.NFC.String(e.Title),
			Body:      norm.NFC.String(e.Body),
			Mood:      norm.NFC.String(e.Mood),
			EntryDate: e.EntryDate,
			Pinned:    e.Pinned,
			Tags:      normalizeTags(e.Tags),
		})
	}
	return Document{
		Version:    DocumentVersion,
		ExportedAt: exportedAt.UTC(),
		Entries:    records,
	}
}

// Entry converts the record back into a store entry ready for
// insertion. The ID is left empty for the store to assign.
func (r Record) Entry() store.Entry {
	return store.Entry{
		Title:     r.Title,
		Body:      r.Body,
		Mood:      r.Mood,
		EntryDate: r.EntryDate,
		Pinned:    r.Pinned,
		Tags:      r.Tags,
	}
}

// Encrypt renders doc as JSON and seals it under password. The result
// is a self-contained export envelope decryptable with the password
// alone.
func Encrypt(doc Document, password string) (string, error) {
	data, err := RenderJSON(doc)
	if err != nil {
		return "", err
	}
	return crypto.EncryptExport(data, password)
}

// Decrypt opens an export envelope and parses the document inside.
// The plaintext passes the same schema validation as an unencrypted
// import, so a wrong password can never smuggle rows past it.
func Decrypt(envelope, password string) (Document, error) {
	data, err := crypto.DecryptExport(envelope, password)
	if err != nil {
		return Document{}, err
	}
	return ParseJSON(data)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, norm.NFC.String(t))
	}
	return out
}
