package export

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderJSON_Golden(t *testing.T) {
	data, err := RenderJSON(fixtureDocument())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "document_json", data)
}

func TestRenderJSON_NoHTMLEscaping(t *testing.T) {
	data, err := RenderJSON(fixtureDocument())
	require.NoError(t, err)

	assert.Contains(t, string(data), "the <garden> bed & water it.")
	assert.NotContains(t, string(data), `\u003c`)
}

func TestParseJSON_RoundTrip(t *testing.T) {
	doc := fixtureDocument()

	data, err := RenderJSON(doc)
	require.NoError(t, err)

	got, err := ParseJSON(data)
	require.NoError(t, err)

	assert.Equal(t, doc.Version, got.Version)
	assert.True(t, got.ExportedAt.Equal(doc.ExportedAt))
	assert.Equal(t, doc.Entries, got.Entries)
}

func TestParseJSON_MinimalDocument(t *testing.T) {
	doc, err := ParseJSON([]byte(`{
  "version": 1,
  "exported_at": "2024-03-02T18:30:00Z",
  "entries": []
}`))
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Version)
	assert.Empty(t, doc.Entries)
}

func TestParseJSON_RejectsNonJSON(t *testing.T) {
	_, err := ParseJSON([]byte("title,body\na,b\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document is not valid JSON")
}

func TestParseJSON_RejectsUnknownTopLevelField(t *testing.T) {
	_, err := ParseJSON([]byte(`{
  "version": 1,
  "exported_at": "2024-03-02T18:30:00Z",
  "entries": [],
  "surprise": true
}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document failed validation")
}

func TestParseJSON_RejectsWrongVersion(t *testing.T) {
	_, err := ParseJSON([]byte(`{
  "version": 2,
  "exported_at": "2024-03-02T18:30:00Z",
  "entries": []
}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document failed validation")
}

func TestParseJSON_RejectsEntryMissingTitle(t *testing.T) {
	_, err := ParseJSON([]byte(`{
  "version": 1,
  "exported_at": "2024-03-02T18:30:00Z",
  "entries": [
    {"body": "b", "entry_date": "2024-01-01", "tags": []}
  ]
}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document failed validation")
}

func TestParseJSON_RejectsMalformedEntryDate(t *testing.T) {
	_, err := ParseJSON([]byte(`{
  "version": 1,
  "exported_at": "2024-03-02T18:30:00Z",
  "entries": [
    {"title": "t", "body": "b", "entry_date": "Jan 1, 2024", "tags": []}
  ]
}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document failed validation")
}

func TestParseJSON_RejectsNonStringTag(t *testing.T) {
	_, err := ParseJSON([]byte(`{
  "version": 1,
  "exported_at": "2024-03-02T18:30:00Z",
  "entries": [
    {"title": "t", "body": "b", "entry_date": "2024-01-01", "tags": [7]}
  ]
}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document failed validation")
}

func TestParseJSON_RejectsUnknownEntryField(t *testing.T) {
	_, err := ParseJSON([]byte(`{
  "version": 1,
  "exported_at": "2024-03-02T18:30:00Z",
  "entries": [
    {"title": "t", "body": "b", "entry_date": "2024-01-01", "tags": [], "color": "red"}
  ]
}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document failed validation")
}
