/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"panelplay/internal/client"
	"panelplay/internal/config"
	"panelplay/internal/domain"
	applog "panelplay/internal/log"
	"panelplay/internal/version"
)

func usage() {
	fmt.Println("panelplayctl — PanelPlay API client")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  panelplayctl version|-v|--version                 Show version")
	fmt.Println("  panelplayctl login <email>                        Sign in; password read from stdin")
	fmt.Println("  panelplayctl comics                               List your comics")
	fmt.Println("  panelplayctl explore [term] [category]            Browse public comics")
	fmt.Println("  panelplayctl pages <comic-id>                     List a comic's pages")
	fmt.Println("  panelplayctl outline <genre> <characters> <idea>  Generate a story outline")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ctl")

	cfg, err := config.Load()
	if err != nil {
		l.Error("config load failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	args := os.Args
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}

	base := cfg.Client.BaseURL
	if base == "" {
		base = "http://localhost:8080"
	}
	c := client.New(base, config.Token())

	timeout := time.Duration(cfg.Client.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
	case "login":
		if len(args) < 3 {
			fmt.Println("login requires <email>")
			os.Exit(2)
		}
		fmt.Print("Password: ")
		rd := bufio.NewReader(os.Stdin)
		pw, err := rd.ReadString('\n')
		if err != nil {
			fail(l, "read password", err)
		}
		s, err := c.Login(ctx, args[2], strings.TrimSpace(pw))
		if err != nil {
			fail(l, "login", err)
		}
		if err := config.SaveToken(s.Token); err != nil {
			fail(l, "save token", err)
		}
		fmt.Println("Signed in as", s.User.Email)
	case "comics":
		list, err := c.ListComics(ctx)
		if err != nil {
			fail(l, "list comics", err)
		}
		printComics(list)
	case "explore":
		term, category := "", ""
		if len(args) > 2 {
			term = args[2]
		}
		if len(args) > 3 {
			category = args[3]
		}
		list, err := c.Explore(ctx, term, category)
		if err != nil {
			fail(l, "explore", err)
		}
		printComics(list)
	case "pages":
		if len(args) < 3 {
			fmt.Println("pages requires <comic-id>")
			os.Exit(2)
		}
		pages, err := c.ListPages(ctx, args[2])
		if err != nil {
			fail(l, "list pages", err)
		}
		for _, p := range pages {
			fmt.Printf("%3d  %s\n", p.PageNumber, p.ImageURL)
		}
	case "outline":
		if len(args) < 5 {
			fmt.Println("outline requires <genre> <characters> <idea>")
			os.Exit(2)
		}
		content, err := c.Outline(ctx, domain.OutlineRequest{
			Genre:      args[2],
			Characters: args[3],
			Idea:       args[4],
		})
		if err != nil {
			fail(l, "outline", err)
		}
		fmt.Println(content)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Println("unknown command:", args[1])
		usage()
		os.Exit(2)
	}
}

func printComics(list []domain.Comic) {
	if len(list) == 0 {
		fmt.Println("no comics")
		return
	}
	for _, c := range list {
		vis := "public"
		if !c.IsPublic {
			vis = "private"
		}
		fmt.Printf("%s  %-8s %-10s %s\n", c.ID, vis, c.Genre, c.Title)
	}
}

func fail(l *slog.Logger, op string, err error) {
	l.Error(op+" failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}
