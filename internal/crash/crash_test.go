/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := WriteReport("", "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("WriteReport error: %v", err)
	}
	defer os.Remove(path)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "PanelPlay Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
	if !strings.Contains(s, "stacktrace") {
		t.Fatalf("stack content missing")
	}
}

func TestWriteReportCreatesFileUnderStorageRoot(t *testing.T) {
	root := t.TempDir()

	path, err := WriteReport(root, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("WriteReport error: %v", err)
	}
	if !strings.Contains(path, filepath.Join(root, ReportDirName)) {
		t.Fatalf("expected crash report under %s, got %s", ReportDirName, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file missing: %v", err)
	}
}

func TestWriteReportForwardsToUploader(t *testing.T) {
	var got []byte
	SetUploader(func(b []byte) { got = append([]byte(nil), b...) })
	defer SetUploader(nil)

	if _, err := WriteReport(t.TempDir(), "boom", []byte("stack")); err != nil {
		t.Fatalf("WriteReport error: %v", err)
	}
	if !strings.Contains(string(got), "Panic: boom") {
		t.Fatalf("uploader did not receive the report: %q", got)
	}
}

func TestRecoverExitsNonZero(t *testing.T) {
	code := -1
	exitFn = func(c int) { code = c }
	defer func() { exitFn = os.Exit }()

	func() {
		defer Recover(t.TempDir())
		panic("lost the plot")
	}()

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}
