/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package outline generates comic story outlines through the hosted Gemini
// completion API. The prompt template is fixed; the three user inputs are
// embedded verbatim.
package outline

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"panelplay/internal/domain"
)

// NoContentFallback is returned when the upstream responds without any text.
const NoContentFallback = "No content generated."

const promptTemplate = `
You are an expert comic writer assistant.

Given:
- Genre: %s
- Main characters: %s
- Core idea: %s

Generate:
1. A short one-paragraph synopsis of the comic.
2. A numbered 10-panel outline. For each panel, include:
   - Panel number
   - What is happening visually
   - One or two lines of possible dialogue.

Format clearly using headings like:
"SYNOPSIS:" and "PANELS:"
`

// Prompt renders the fixed instructional template around the request fields.
func Prompt(req domain.OutlineRequest) string {
	return fmt.Sprintf(promptTemplate, req.Genre, req.Characters, req.Idea)
}

// Completer is the single upstream call the generator depends on. It exists
// so handlers and tests can substitute the hosted API.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator renders the prompt and forwards it upstream with a fixed model
// and sampling temperature.
type Generator struct {
	completer Completer
}

// New creates a generator over the hosted Gemini API. The API key is
// required; callers gate on configuration before constructing one.
func New(ctx context.Context, apiKey, model string, temperature float64) (*Generator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Generator{completer: &genaiCompleter{
		client:      client,
		model:       model,
		temperature: float32(temperature),
	}}, nil
}

// NewWithCompleter wires a custom upstream. Used by tests.
func NewWithCompleter(c Completer) *Generator { return &Generator{completer: c} }

// Generate validates nothing beyond delegation: the caller rejects incomplete
// requests before any upstream call is made. The first generated message's
// text is returned, or NoContentFallback when the upstream yields none.
func (g *Generator) Generate(ctx context.Context, req domain.OutlineRequest) (string, error) {
	text, err := g.completer.Complete(ctx, Prompt(req))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return NoContentFallback, nil
	}
	return text, nil
}

type genaiCompleter struct {
	client      *genai.Client
	model       string
	temperature float32
}

func (c *genaiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	res, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return res.Text(), nil
}
