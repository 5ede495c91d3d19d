/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"testing"
)

func TestEnvOverridesDatabaseURL(t *testing.T) {
	old := os.Getenv(EnvDatabaseURL)
	_ = os.Setenv(EnvDatabaseURL, "postgres://u:p@db.test:5432/pp")
	t.Cleanup(func() { _ = os.Setenv(EnvDatabaseURL, old) })
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Database.URL, "postgres://u:p@db.test:5432/pp"; got != want {
		t.Fatalf("Database.URL = %q, want %q", got, want)
	}
}

func TestEnvOverridesAddrPrefersPPAddr(t *testing.T) {
	oldAddr := os.Getenv(EnvAddr)
	oldPort := os.Getenv(EnvPort)
	_ = os.Setenv(EnvAddr, "127.0.0.1:9000")
	_ = os.Setenv(EnvPort, "3000")
	t.Cleanup(func() {
		_ = os.Setenv(EnvAddr, oldAddr)
		_ = os.Setenv(EnvPort, oldPort)
	})
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("Server.Addr = %q, PP_ADDR should win over PORT", cfg.Server.Addr)
	}
}

func TestEnvPortFallback(t *testing.T) {
	oldAddr := os.Getenv(EnvAddr)
	oldPort := os.Getenv(EnvPort)
	_ = os.Unsetenv(EnvAddr)
	_ = os.Setenv(EnvPort, "3000")
	t.Cleanup(func() {
		_ = os.Setenv(EnvAddr, oldAddr)
		_ = os.Setenv(EnvPort, oldPort)
	})
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != ":3000" {
		t.Fatalf("Server.Addr = %q, want :3000 from PORT", cfg.Server.Addr)
	}
}

func TestAPIKeyComesFromEnvOnly(t *testing.T) {
	old := os.Getenv(EnvGeminiAPIKey)
	_ = os.Setenv(EnvGeminiAPIKey, "k-123")
	t.Cleanup(func() { _ = os.Setenv(EnvGeminiAPIKey, old) })
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Outline.APIKey != "k-123" {
		t.Fatalf("Outline.APIKey not picked up from env")
	}
}

func TestMergeIncludesTelemetry(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.General.TelemetryOptIn = true
	mergeInto(&dst, &src)
	if !dst.General.TelemetryOptIn {
		t.Fatalf("TelemetryOptIn was not merged from file config")
	}
}

func TestMergeIncludesStorageAndLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Storage.Root = "/srv/pp/pages"
	src.Storage.PublicBaseURL = "https://cdn.example.test"
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.File = "/tmp/pp.log"
	mergeInto(&dst, &src)
	if dst.Storage.Root != "/srv/pp/pages" || dst.Storage.PublicBaseURL != "https://cdn.example.test" {
		t.Fatalf("storage fields not merged: %#v", dst.Storage)
	}
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || dst.Logging.File != "/tmp/pp.log" {
		t.Fatalf("logging fields not merged: %#v", dst.Logging)
	}
}

type fakeTokenStore struct{ m map[string]string }

func (f *fakeTokenStore) Get(service, key string) (string, error) { return f.m[service+"/"+key], nil }
func (f *fakeTokenStore) Set(service, key, value string) error {
	f.m[service+"/"+key] = value
	return nil
}
func (f *fakeTokenStore) Delete(service, key string) error {
	delete(f.m, service+"/"+key)
	return nil
}

func TestTokenRoundTrip(t *testing.T) {
	orig := tokenStore
	tokenStore = &fakeTokenStore{m: map[string]string{}}
	t.Cleanup(func() { tokenStore = orig })

	if err := SaveToken("tok-abc"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	if got := Token(); got != "tok-abc" {
		t.Fatalf("Token() = %q, want tok-abc", got)
	}
	if err := SaveToken(""); err != nil {
		t.Fatalf("SaveToken delete: %v", err)
	}
	if got := Token(); got != "" {
		t.Fatalf("Token() after delete = %q, want empty", got)
	}
}
