/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package blob

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"
)

func TestPageObjectPathConvention(t *testing.T) {
	ts := time.UnixMilli(1700000000000)
	p := PageObjectPath("c-42", 3, ts, "cover.png")
	want := "comic-c-42/page-3-1700000000000-cover.png"
	if p != want {
		t.Fatalf("PageObjectPath = %q, want %q", p, want)
	}
}

func TestPageObjectPathStripsDirectories(t *testing.T) {
	ts := time.UnixMilli(1)
	p := PageObjectPath("c", 1, ts, "../../etc/passwd")
	if strings.Contains(p, "..") {
		t.Fatalf("object path carries traversal: %q", p)
	}
	if !strings.HasSuffix(p, "-passwd") {
		t.Fatalf("filename not reduced to base: %q", p)
	}
}

func TestObjectPathFromURL(t *testing.T) {
	url := "http://localhost:8080/storage/v1/object/public/comic_pages/comic-c1/page-1-99-x.png"
	p, ok := ObjectPathFromURL(url)
	if !ok || p != "comic-c1/page-1-99-x.png" {
		t.Fatalf("ObjectPathFromURL = %q, %v", p, ok)
	}
	if _, ok := ObjectPathFromURL("http://example.test/images/x.png"); ok {
		t.Fatalf("marker-less URL should not parse")
	}
}

func TestDiskStoreRoundTrip(t *testing.T) {
	d, err := NewDiskStore(t.TempDir(), "http://localhost:8080/")
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	ctx := context.Background()

	obj := PageObjectPath("c1", 1, time.Now(), "page.png")
	if err := d.Put(ctx, obj, strings.NewReader("imagebytes")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	url := d.PublicURL(obj)
	if !strings.Contains(url, PublicURLMarker) {
		t.Fatalf("public URL missing marker: %q", url)
	}
	back, ok := ObjectPathFromURL(url)
	if !ok || back != obj {
		t.Fatalf("URL round trip = %q, %v; want %q", back, ok, obj)
	}

	rc, err := d.Open(ctx, obj)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "imagebytes" {
		t.Fatalf("object content = %q", b)
	}

	if err := d.Remove(ctx, obj); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := d.Open(ctx, obj); err == nil {
		t.Fatalf("Open after Remove should fail")
	}
}

func TestDiskStoreRejectsEmptyPath(t *testing.T) {
	d, err := NewDiskStore(t.TempDir(), "http://x")
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	if err := d.Put(context.Background(), "", strings.NewReader("x")); err == nil {
		t.Fatalf("empty object path should be rejected")
	}
}

func TestSniffImage(t *testing.T) {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 6))
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	info, err := SniffImage(buf.Bytes())
	if err != nil {
		t.Fatalf("SniffImage: %v", err)
	}
	if info.Format != "png" || info.Width != 4 || info.Height != 6 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if _, err := SniffImage([]byte("not an image at all")); err == nil {
		t.Fatalf("garbage should not sniff as image")
	}
}
