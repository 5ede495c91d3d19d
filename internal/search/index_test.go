/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package search

import (
	"context"
	"testing"

	"panelplay/internal/domain"
)

func openForTest(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func seed(t *testing.T, ix *Index) {
	t.Helper()
	comics := []domain.Comic{
		{ID: "c1", Title: "Nebula Drift", Description: "A courier pilot smuggles memories.", Genre: "Sci-Fi"},
		{ID: "c2", Title: "Bloom Run", Description: "Two teens hack the weather. Pure comedy chaos.", Genre: ""},
		{ID: "c3", Title: "Hollow Metro", Description: "Detectives patrol an endless subway.", Genre: "Mystery"},
	}
	if err := ix.Rebuild(context.Background(), comics); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
}

func TestMatchByTitleTerm(t *testing.T) {
	ix := openForTest(t)
	seed(t, ix)
	ids, err := ix.Match(context.Background(), Query{Term: "nebula"})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !ids["c1"] || len(ids) != 1 {
		t.Fatalf("ids = %v, want only c1", ids)
	}
}

func TestMatchByDescriptionTerm(t *testing.T) {
	ix := openForTest(t)
	seed(t, ix)
	ids, err := ix.Match(context.Background(), Query{Term: "SUBWAY"})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !ids["c3"] || len(ids) != 1 {
		t.Fatalf("ids = %v, want only c3", ids)
	}
}

func TestCategoryMatchesGenreOrDescription(t *testing.T) {
	ix := openForTest(t)
	seed(t, ix)

	// genre facet
	ids, err := ix.Match(context.Background(), Query{Category: "Mystery"})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !ids["c3"] || len(ids) != 1 {
		t.Fatalf("ids = %v, want only c3", ids)
	}

	// comics without a genre still match through their description
	ids, err = ix.Match(context.Background(), Query{Category: "Comedy"})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !ids["c2"] || len(ids) != 1 {
		t.Fatalf("ids = %v, want only c2", ids)
	}
}

func TestAllCategoryDisablesFacet(t *testing.T) {
	ix := openForTest(t)
	seed(t, ix)
	ids, err := ix.Match(context.Background(), Query{Category: "All"})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ids = %v, want all three", ids)
	}
}

func TestTermAndCategoryCombine(t *testing.T) {
	ix := openForTest(t)
	seed(t, ix)
	ids, err := ix.Match(context.Background(), Query{Term: "drift", Category: "Comedy"})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("ids = %v, want none", ids)
	}
}

func TestPutAndDelete(t *testing.T) {
	ix := openForTest(t)
	ctx := context.Background()
	if err := ix.Put(ctx, domain.Comic{ID: "x", Title: "Late Addition", Description: "d"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	ids, _ := ix.Match(ctx, Query{Term: "late"})
	if !ids["x"] {
		t.Fatalf("put comic not matchable")
	}
	if err := ix.Delete(ctx, "x"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ids, _ = ix.Match(ctx, Query{Term: "late"})
	if len(ids) != 0 {
		t.Fatalf("deleted comic still matchable: %v", ids)
	}
}

func TestLikeWildcardsAreEscaped(t *testing.T) {
	ix := openForTest(t)
	ctx := context.Background()
	_ = ix.Put(ctx, domain.Comic{ID: "a", Title: "100% Hero", Description: "d"})
	_ = ix.Put(ctx, domain.Comic{ID: "b", Title: "Zero Hero", Description: "d"})
	ids, err := ix.Match(ctx, Query{Term: "100%"})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !ids["a"] || len(ids) != 1 {
		t.Fatalf("wildcard not escaped, ids = %v", ids)
	}
}
