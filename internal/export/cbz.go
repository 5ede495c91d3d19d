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
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"panelplay/internal/blob"
	"panelplay/internal/domain"
)

// comicInfo is the ComicInfo.xml metadata manifest understood by most comic
// readers.
type comicInfo struct {
	XMLName   xml.Name `xml:"ComicInfo"`
	Title     string   `xml:"Title"`
	Summary   string   `xml:"Summary,omitempty"`
	Genre     string   `xml:"Genre,omitempty"`
	PageCount int      `xml:"PageCount"`
}

// WriteComicCBZ packages the comic's page images into a CBZ (ZIP) archive
// with a ComicInfo.xml manifest, pages in ascending order.
func WriteComicCBZ(ctx context.Context, w io.Writer, comic domain.Comic, pages []domain.ComicPage, objects blob.Store) error {
	domain.SortPages(pages)

	zw := zip.NewWriter(w)

	info := comicInfo{Title: comic.Title, Summary: comic.Description, Genre: comic.Genre, PageCount: len(pages)}
	entry, err := zw.Create("ComicInfo.xml")
	if err != nil {
		return fmt.Errorf("create manifest entry: %w", err)
	}
	if _, err := entry.Write([]byte(xml.Header)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	enc := xml.NewEncoder(entry)
	enc.Indent("", "  ")
	if err := enc.Encode(info); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	for _, p := range pages {
		data, format, err := readPageImage(ctx, p, objects)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("page-%03d.%s", p.PageNumber, cbzExt(format))
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize cbz: %w", err)
	}
	return nil
}

func cbzExt(format string) string {
	switch format {
	case "jpeg":
		return "jpg"
	default:
		return format
	}
}
