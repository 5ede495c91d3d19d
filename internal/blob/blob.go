/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package blob stores page images. Object paths follow the convention
// comic-<comicId>/page-<n>-<timestamp>-<filename>, and public URLs carry a
// fixed marker segment from which the object path can be re-derived when a
// page is deleted.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// BucketName is the logical bucket holding page images.
const BucketName = "comic_pages"

// PublicURLMarker is the literal path segment present in every public object
// URL. Deletion reverse-derives the object path by locating it.
const PublicURLMarker = "/storage/v1/object/public/" + BucketName + "/"

// Store is the object-storage collaborator injected into the server.
type Store interface {
	Put(ctx context.Context, objectPath string, r io.Reader) error
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)
	Remove(ctx context.Context, objectPath string) error
	PublicURL(objectPath string) string
}

// PageObjectPath builds the storage path for a page upload. The embedded page
// number and timestamp make collisions unlikely but not impossible; the
// database row, not the path, is authoritative for ordering.
func PageObjectPath(comicID string, pageNumber int, now time.Time, filename string) string {
	name := sanitizeFilename(filename)
	return fmt.Sprintf("comic-%s/page-%d-%d-%s", comicID, pageNumber, now.UnixMilli(), name)
}

// ObjectPathFromURL extracts the object path from a public URL by locating
// the marker segment. It returns false when the marker is absent.
func ObjectPathFromURL(url string) (string, bool) {
	idx := strings.Index(url, PublicURLMarker)
	if idx == -1 {
		return "", false
	}
	p := url[idx+len(PublicURLMarker):]
	if p == "" {
		return "", false
	}
	return p, true
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

// DiskStore is a local-disk bucket serving as the hosted object store. The
// HTTP server exposes its contents under PublicURLMarker.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore creates the bucket directory if needed. baseURL is the public
// origin prefixed to object URLs, e.g. "http://localhost:8080".
func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &DiskStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the bucket directory, for static file serving.
func (d *DiskStore) Root() string { return d.root }

func (d *DiskStore) localPath(objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)
	if clean == "/" {
		return "", errors.New("empty object path")
	}
	return filepath.Join(d.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (d *DiskStore) Put(ctx context.Context, objectPath string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := d.localPath(objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("write object: %w", err)
	}
	return f.Close()
}

func (d *DiskStore) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := d.localPath(objectPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

func (d *DiskStore) Remove(ctx context.Context, objectPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := d.localPath(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func (d *DiskStore) PublicURL(objectPath string) string {
	return d.baseURL + PublicURLMarker + strings.TrimPrefix(objectPath, "/")
}
