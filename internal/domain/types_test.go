package domain

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

func TestComicJSONRoundTrip(t *testing.T) {
	c := Comic{
		ID:          "c-1",
		Title:       "Nebula Drift",
		Description: "A courier pilot smuggles memories across a fractured galaxy.",
		Genre:       "Sci-Fi",
		IsPublic:    true,
		UserID:      "u-1",
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Comic
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Title != c.Title || got.IsPublic != c.IsPublic || !got.CreatedAt.Equal(c.CreatedAt) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestComicConformsToSchema(t *testing.T) {
	c := Comic{
		ID:          "c-1",
		Title:       "Schema Test",
		Description: "demo",
		IsPublic:    true,
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	schemaPath := filepath.Join("..", "..", "docs", "comic.schema.json")
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("comic does not conform to schema")
	}
}

func TestSortPagesAscending(t *testing.T) {
	pages := []ComicPage{
		{ID: "a", PageNumber: 1},
		{ID: "c", PageNumber: 3},
		{ID: "b", PageNumber: 2},
	}
	SortPages(pages)
	for i, want := range []int{1, 2, 3} {
		if pages[i].PageNumber != want {
			t.Fatalf("pages[%d].PageNumber = %d, want %d", i, pages[i].PageNumber, want)
		}
	}
}

func TestNextPageNumber(t *testing.T) {
	if got := NextPageNumber(nil); got != 1 {
		t.Fatalf("NextPageNumber(empty) = %d, want 1", got)
	}
	pages := []ComicPage{{PageNumber: 2}, {PageNumber: 7}, {PageNumber: 4}}
	if got := NextPageNumber(pages); got != 8 {
		t.Fatalf("NextPageNumber = %d, want 8", got)
	}
}

func TestOutlineRequestComplete(t *testing.T) {
	ok := OutlineRequest{Genre: "Fantasy", Characters: "Ana, Brim", Idea: "A door that only opens backwards"}
	if !ok.Complete() {
		t.Fatalf("expected complete request")
	}
	for _, r := range []OutlineRequest{
		{Characters: "x", Idea: "y"},
		{Genre: "x", Idea: "y"},
		{Genre: "x", Characters: "y"},
		{Genre: "  ", Characters: "x", Idea: "y"},
	} {
		if r.Complete() {
			t.Fatalf("expected incomplete request: %+v", r)
		}
	}
}
