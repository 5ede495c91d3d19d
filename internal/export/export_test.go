/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"panelplay/internal/blob"
	"panelplay/internal/domain"
)

// seedComic uploads n tiny PNG pages (inserted out of order) into a disk
// store and returns the comic, its pages and the store.
func seedComic(t *testing.T, n int) (domain.Comic, []domain.ComicPage, *blob.DiskStore) {
	t.Helper()
	d, err := blob.NewDiskStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("disk store: %v", err)
	}
	comic := domain.Comic{ID: "c1", Title: "Export Me", Description: "demo comic", Genre: "Fantasy"}

	var pages []domain.ComicPage
	for i := n; i >= 1; i-- { // deliberately descending
		img := image.NewRGBA(image.Rect(0, 0, 8, 12))
		img.Set(0, 0, color.RGBA{R: uint8(i * 20), A: 255})
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("encode png: %v", err)
		}
		objPath := blob.PageObjectPath(comic.ID, i, time.Now(), "p.png")
		if err := d.Put(context.Background(), objPath, &buf); err != nil {
			t.Fatalf("put: %v", err)
		}
		pages = append(pages, domain.ComicPage{
			ID: fmt.Sprintf("p%d", i), ComicID: comic.ID, PageNumber: i, ImageURL: d.PublicURL(objPath),
		})
	}
	return comic, pages, d
}

func TestWriteComicPDF(t *testing.T) {
	comic, pages, d := seedComic(t, 3)
	var out bytes.Buffer
	if err := WriteComicPDF(context.Background(), &out, comic, pages, d); err != nil {
		t.Fatalf("WriteComicPDF: %v", err)
	}
	if !bytes.HasPrefix(out.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF (prefix %q)", out.Bytes()[:8])
	}
	if out.Len() < 100 {
		t.Fatalf("suspiciously small PDF: %d bytes", out.Len())
	}
}

func TestWriteComicCBZOrdersPages(t *testing.T) {
	comic, pages, d := seedComic(t, 3)
	var out bytes.Buffer
	if err := WriteComicCBZ(context.Background(), &out, comic, pages, d); err != nil {
		t.Fatalf("WriteComicCBZ: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(out.Bytes()), int64(out.Len()))
	if err != nil {
		t.Fatalf("open cbz: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := []string{"ComicInfo.xml", "page-001.png", "page-002.png", "page-003.png"}
	if len(names) != len(want) {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("entries = %v, want %v", names, want)
		}
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	defer rc.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(rc); err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	manifest := buf.String()
	for _, frag := range []string{"<Title>Export Me</Title>", "<Genre>Fantasy</Genre>", "<PageCount>3</PageCount>"} {
		if !strings.Contains(manifest, frag) {
			t.Fatalf("manifest missing %q:\n%s", frag, manifest)
		}
	}
}

func TestExportFailsOnForeignURL(t *testing.T) {
	comic, pages, d := seedComic(t, 1)
	pages[0].ImageURL = "http://elsewhere.test/image.png"
	var out bytes.Buffer
	if err := WriteComicCBZ(context.Background(), &out, comic, pages, d); err == nil {
		t.Fatalf("URL without storage marker should fail export")
	}
}

func TestFitRectPreservesAspect(t *testing.T) {
	_, _, w, h := fitRect(100, 200)
	if w <= 0 || h <= 0 {
		t.Fatalf("degenerate fit: %f x %f", w, h)
	}
	ratio := h / w
	if ratio < 1.99 || ratio > 2.01 {
		t.Fatalf("aspect ratio not preserved: %f", ratio)
	}
}
