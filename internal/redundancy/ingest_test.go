// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package redundancy

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kortschak/nr/internal/store"
)

func TestIngest(t *testing.T) {
	dir := t.TempDir()
	fasta := filepath.Join(dir, "in.faa")
	content := ">short\nAC\n" +
		">sp|long_enough|first description\nACDEFGHIKLMNPQRSTVWY\n" +
		">sp|long_enough|duplicate description\nACDEFGHIKLMNPQRSTVWYACDEFGHIKLMNPQRSTVWY\n"
	if err := ioutil.WriteFile(fasta, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	stage, err := store.Open(filepath.Join(dir, "stage.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer stage.Close()

	var warnings []string
	var rejectLevel = -1
	f, err := os.Open(fasta)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	res, err := Ingest(f, fasta, 3, stage, func(level int, msg string) {
		warnings = append(warnings, msg)
		if strings.Contains(msg, "rejected") {
			rejectLevel = level
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	if res.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1 (the 2-residue record)", res.Rejected)
	}
	if res.Duplicate != 1 {
		t.Errorf("Duplicate = %d, want 1 (the repeated canonical id)", res.Duplicate)
	}
	if res.Staged != 1 {
		t.Errorf("Staged = %d, want 1", res.Staged)
	}

	v, err := stage.Fetch([]byte("long_enough"))
	if err != nil {
		t.Fatal(err)
	}
	if v == nil {
		t.Fatal("expected long_enough to be staged")
	}
	loc, err := ParseLocator(string(v))
	if err != nil {
		t.Fatal(err)
	}
	if loc.File != fasta {
		t.Errorf("locator file = %q, want %q", loc.File, fasta)
	}

	foundDup := false
	for _, w := range warnings {
		if strings.Contains(w, "duplicate id") {
			foundDup = true
		}
	}
	if !foundDup {
		t.Errorf("expected a duplicate-id warning, got %v", warnings)
	}

	if rejectLevel != 1 {
		t.Errorf("rejection message reported at level %d, want 1 (verbose-only, matching nr.c's gVerbose gate)", rejectLevel)
	}
}
