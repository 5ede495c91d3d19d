/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"panelplay/internal/auth"
	"panelplay/internal/blob"
	"panelplay/internal/config"
	"panelplay/internal/crash"
	applog "panelplay/internal/log"
	"panelplay/internal/outline"
	"panelplay/internal/search"
	"panelplay/internal/server"
	"panelplay/internal/store"
	"panelplay/internal/telemetry"
	"panelplay/internal/version"
)

func usage() {
	fmt.Println("PanelPlay — web comics server")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  panelplay version|-v|--version   Show version")
	fmt.Println("  panelplay serve                  Run the HTTP server (default)")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")

	cfg, err := config.Load()
	if err != nil {
		l.Error("config load failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	defer crash.Recover(cfg.Storage.Root)

	args := os.Args
	cmd := "serve"
	if len(args) > 1 {
		cmd = args[1]
	}
	switch cmd {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return
	case "serve":
		if err := serve(cfg); err != nil {
			l.Error("serve failed", slog.Any("err", err))
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Println("unknown command:", cmd)
		usage()
		os.Exit(2)
	}
}

func serve(cfg config.AppConfig) error {
	l := applog.WithComponent("serve")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel := telemetry.New(telemetry.FromEnv())
	defer tel.Close()
	crash.SetUploader(tel.UploadCrash)

	if cfg.Server.AuthSecret == "" {
		cfg.Server.AuthSecret = "dev-secret-change-me"
		l.Warn("PP_AUTH_SECRET not set; using insecure dev secret")
	}

	st, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			l.Error("store close failed", slog.Any("err", err))
		}
	}()

	blobs, err := blob.NewDiskStore(cfg.Storage.Root, cfg.Storage.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	var gen *outline.Generator
	if cfg.Outline.APIKey != "" {
		gen, err = outline.New(ctx, cfg.Outline.APIKey, cfg.Outline.Model, cfg.Outline.Temperature)
		if err != nil {
			return fmt.Errorf("outline client: %w", err)
		}
	} else {
		l.Warn("GEMINI_API_KEY not set; story helper disabled")
	}

	index, err := search.Open(":memory:")
	if err != nil {
		return fmt.Errorf("open search index: %w", err)
	}
	defer func() {
		if err := index.Close(); err != nil {
			l.Error("index close failed", slog.Any("err", err))
		}
	}()
	if public, err := st.ListPublicComics(ctx); err != nil {
		l.Warn("initial index build skipped", slog.Any("err", err))
	} else if err := index.Rebuild(ctx, public); err != nil {
		l.Warn("initial index build failed", slog.Any("err", err))
	}

	srv := server.New(server.Options{
		Addr:     cfg.Server.Addr,
		Store:    st,
		Auth:     auth.NewService(cfg.Server.AuthSecret, st, 0),
		Blobs:    blobs,
		Outline:  gen,
		Index:    index,
		Telem:    tel,
		CrashDir: cfg.Storage.Root,
	})
	l.Info("starting server", slog.String("addr", cfg.Server.Addr))
	return srv.Start(ctx)
}
