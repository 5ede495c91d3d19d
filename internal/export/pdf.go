/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a comic's uploaded pages into downloadable archives:
// a multi-page PDF and a CBZ with a ComicInfo.xml manifest.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"panelplay/internal/blob"
	"panelplay/internal/domain"
)

// A4 portrait in points.
const (
	pageWidthPt  = 595.28
	pageHeightPt = 841.89
	marginPt     = 24.0
)

// WriteComicPDF writes one PDF page per comic page, images scaled to fit,
// in ascending page-number order.
func WriteComicPDF(ctx context.Context, w io.Writer, comic domain.Comic, pages []domain.ComicPage, objects blob.Store) error {
	domain.SortPages(pages)

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(comic.Title, true)
	pdf.SetAutoPageBreak(false, 0)

	for _, p := range pages {
		data, format, err := readPageImage(ctx, p, objects)
		if err != nil {
			return err
		}
		imgType, err := pdfImageType(format)
		if err != nil {
			return fmt.Errorf("page %d: %w", p.PageNumber, err)
		}

		name := fmt.Sprintf("page-%d", p.PageNumber)
		info := pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: imgType}, strings.NewReader(string(data)))
		if pdf.Err() {
			return fmt.Errorf("page %d: register image: %s", p.PageNumber, pdf.Error())
		}

		pdf.AddPage()
		x, y, wd, ht := fitRect(info.Width(), info.Height())
		pdf.ImageOptions(name, x, y, wd, ht, false, gofpdf.ImageOptions{ImageType: imgType}, 0, "")
		if pdf.Err() {
			return fmt.Errorf("page %d: place image: %s", p.PageNumber, pdf.Error())
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// fitRect scales an image into the printable area preserving aspect ratio
// and centers it.
func fitRect(imgW, imgH float64) (x, y, w, h float64) {
	availW := pageWidthPt - 2*marginPt
	availH := pageHeightPt - 2*marginPt
	if imgW <= 0 || imgH <= 0 {
		return marginPt, marginPt, availW, availH
	}
	scale := availW / imgW
	if imgH*scale > availH {
		scale = availH / imgH
	}
	w = imgW * scale
	h = imgH * scale
	x = (pageWidthPt - w) / 2
	y = (pageHeightPt - h) / 2
	return x, y, w, h
}

func pdfImageType(format string) (string, error) {
	switch strings.ToLower(format) {
	case "png":
		return "PNG", nil
	case "jpeg", "jpg":
		return "JPG", nil
	case "gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("image format %q not supported for PDF export", format)
	}
}

// readPageImage resolves the page's object path from its public URL and
// returns the raw bytes plus the sniffed format.
func readPageImage(ctx context.Context, p domain.ComicPage, objects blob.Store) ([]byte, string, error) {
	objPath, ok := blob.ObjectPathFromURL(p.ImageURL)
	if !ok {
		return nil, "", fmt.Errorf("page %d: image URL %q carries no storage marker", p.PageNumber, p.ImageURL)
	}
	rc, err := objects.Open(ctx, objPath)
	if err != nil {
		return nil, "", fmt.Errorf("page %d: %w", p.PageNumber, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("page %d: read image: %w", p.PageNumber, err)
	}
	info, err := blob.SniffImage(data)
	if err != nil {
		return nil, "", fmt.Errorf("page %d: %w", p.PageNumber, err)
	}
	return data, info.Format, nil
}
