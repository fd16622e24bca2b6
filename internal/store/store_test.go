// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"path/filepath"
	"testing"
)

func TestInsertUniqueAndFetch(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	inserted, err := s.InsertUnique([]byte("a"), []byte("1"))
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Fatal("expected first insert of a to succeed")
	}

	inserted, err = s.InsertUnique([]byte("a"), []byte("2"))
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Fatal("expected second insert of a to report already-present")
	}

	v, err := s.Fetch([]byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "1" {
		t.Fatalf("Fetch(a) = %q, want %q (insert-unique must not overwrite)", v, "1")
	}

	if err := s.Replace([]byte("a"), []byte("2")); err != nil {
		t.Fatal(err)
	}
	v, err = s.Fetch([]byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "2" {
		t.Fatalf("Fetch(a) after Replace = %q, want %q", v, "2")
	}

	v, err = s.Fetch([]byte("missing"))
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("Fetch(missing) = %q, want nil", v)
	}
}

func TestOrderedIteration(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for _, k := range []string{"banana", "apple", "cherry"} {
		if _, err := s.InsertUnique([]byte(k), []byte(k)); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	key, err := s.FirstKey()
	if err != nil {
		t.Fatal(err)
	}
	for key != nil {
		got = append(got, string(key))
		key, err = s.NextKey(key)
		if err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"apple", "banana", "cherry"}
	if len(got) != len(want) {
		t.Fatalf("iterated %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("iterated %v, want %v", got, want)
		}
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.InsertUnique([]byte("a"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete([]byte("a")); err != nil {
		t.Fatal(err)
	}
	v, err := s.Fetch([]byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("Fetch(a) after Delete = %q, want nil", v)
	}
	// Deleting an absent key must not error.
	if err := s.Delete([]byte("a")); err != nil {
		t.Fatalf("Delete of absent key returned error: %v", err)
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.InsertUnique([]byte("a"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	key, err := s.FirstKey()
	if err != nil {
		t.Fatal(err)
	}
	if key != nil {
		t.Fatalf("FirstKey after Clear = %q, want nil", key)
	}

	// The store must still be usable after Clear.
	if _, err := s.InsertUnique([]byte("b"), []byte("2")); err != nil {
		t.Fatal(err)
	}
	v, err := s.Fetch([]byte("b"))
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "2" {
		t.Fatalf("Fetch(b) after Clear+insert = %q, want %q", v, "2")
	}
}

func TestPathFor(t *testing.T) {
	got := PathFor("/tmp", "seqhash", 1234)
	want := filepath.Join("/tmp", "seqhash.1234")
	if got != want {
		t.Fatalf("PathFor = %q, want %q", got, want)
	}
}
