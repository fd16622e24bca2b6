// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package redundancy implements a two-pass, fragment-indexed sequence
// redundancy engine: it ingests one or more sequence files and emits the
// subset of records that are not a contiguous substring of some other
// retained record.
package redundancy

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/kortschak/nr/internal/store"
)

// DefaultFragmentSize is the default representative-fragment size, F.
const DefaultFragmentSize = 15

// Config holds the engine's tunables.
type Config struct {
	// Dir is the directory the five on-disk stores are created in.
	Dir string
	// FragmentSize is F, the representative-fragment length. The
	// fragment actually indexed is F-1 bytes long.
	FragmentSize int
	// RejectSize is the maximum body length, inclusive, that causes a
	// record to be discarded outright.
	RejectSize int
	// Verbose is the verbosity level; 0 only logs warnings and errors.
	Verbose int
}

// Engine is the Batch Merger & Driver (component G): it owns the five
// on-disk stores, the body fetcher, and the run configuration, and
// sequences the per-file phases described by the state machine. It
// replaces the original tool's five process-global store handles with a
// single explicit context threaded through every component.
type Engine struct {
	cfg Config
	pid int

	seqMain   *store.Store
	seqStage  *store.Store
	fragIndex *store.Store
	fragTable *store.Store
	deleted   *store.Store

	fetcher *Fetcher
}

// New creates the five on-disk stores used by the engine.
func New(cfg Config) (*Engine, error) {
	if cfg.FragmentSize <= 0 {
		cfg.FragmentSize = DefaultFragmentSize
	}
	if cfg.RejectSize <= 0 {
		cfg.RejectSize = 2 * cfg.FragmentSize
	}
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}

	e := &Engine{cfg: cfg, pid: os.Getpid(), fetcher: &Fetcher{}}

	var err error
	if e.seqMain, err = store.Open(store.PathFor(cfg.Dir, "seqhash", e.pid), nil); err != nil {
		return nil, err
	}
	if e.seqStage, err = store.Open(store.PathFor(cfg.Dir, "seqhash_temp", e.pid), nil); err != nil {
		return nil, err
	}
	if e.fragIndex, err = store.Open(store.PathFor(cfg.Dir, "fraghash", e.pid), nil); err != nil {
		return nil, err
	}
	if e.fragTable, err = store.Open(store.PathFor(cfg.Dir, "fragtablehash", e.pid), nil); err != nil {
		return nil, err
	}
	if e.deleted, err = store.Open(store.PathFor(cfg.Dir, "deletedhash", e.pid), nil); err != nil {
		return nil, err
	}
	return e, nil
}

// Close closes every store without removing its backing file.
func (e *Engine) Close() error {
	return e.closeAll(false)
}

// Cleanup closes and removes every store's backing file, and releases
// the cached fetcher handle.
func (e *Engine) Cleanup() error {
	err := e.closeAll(true)
	if cerr := e.fetcher.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (e *Engine) closeAll(unlink bool) error {
	stores := []*store.Store{e.seqMain, e.seqStage, e.fragIndex, e.fragTable, e.deleted}
	var first error
	for _, s := range stores {
		var err error
		if unlink {
			err = s.Unlink()
		} else {
			err = s.Close()
		}
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (e *Engine) logf(level int, format string, args ...interface{}) {
	if e.cfg.Verbose >= level {
		log.Printf(format, args...)
	}
}

// ProcessFile runs the per-file phase sequence: ingest, index fragments,
// purge, then — unless loadOnly, which promises the file is already
// non-redundant — sweep and purge again, and finally merge survivors
// into the retained set.
func (e *Engine) ProcessFile(filename string, loadOnly bool) error {
	e.logf(2, "NON-REDUNDANTISING %s", filename)

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("nr: can't read %s: %w", filename, err)
	}
	defer f.Close()

	e.logf(2, "reading sequences")
	if _, err := Ingest(bufio.NewReader(f), filename, e.cfg.RejectSize, e.seqStage, func(level int, msg string) {
		e.logf(level, "%s", msg)
	}); err != nil {
		return fmt.Errorf("nr: failed reading sequences from %s: %w", filename, err)
	}

	e.logf(2, "hashing sequence fragments")
	if err := e.indexFragments(loadOnly); err != nil {
		return err
	}

	if !loadOnly {
		e.logf(2, "dropping redundancies")
		if err := e.sweep(); err != nil {
			return err
		}
	}

	e.logf(2, "merging sequence hashes")
	return e.merge()
}

// merge copies every surviving staged record into the retained set,
// warning on any id collision across files, then clears the staging
// store. The copy loop runs inside a single transaction on seqMain,
// following the batched-insert pattern cmd/ins/fragment.go uses for its
// merge step rather than committing one record at a time.
func (e *Engine) merge() error {
	key, err := e.seqStage.FirstKey()
	if err != nil {
		return err
	}
	err = e.seqMain.Batch(func() error {
		for key != nil {
			next, err := e.seqStage.NextKey(key)
			if err != nil {
				return err
			}
			v, err := e.seqStage.Fetch(key)
			if err != nil {
				return err
			}
			if v != nil {
				inserted, err := e.seqMain.InsertUnique(key, v)
				if err != nil {
					return err
				}
				if !inserted {
					e.logf(0, "Warning (W001): duplicate id: %s", key)
				}
			}
			key = next
		}
		return nil
	})
	if err != nil {
		return err
	}
	return e.seqStage.Clear()
}

// Emit writes every retained record, original header plus body, to w,
// in store-enumeration order.
func (e *Engine) Emit(w io.Writer) error {
	e.logf(2, "writing results")
	key, err := e.seqMain.FirstKey()
	if err != nil {
		return err
	}
	for key != nil {
		next, err := e.seqMain.NextKey(key)
		if err != nil {
			return err
		}
		v, err := e.seqMain.Fetch(key)
		if err != nil {
			return err
		}
		if v != nil {
			loc, err := ParseLocator(string(v))
			if err != nil {
				return err
			}
			body, err := e.fetcher.Fetch(loc, true)
			if err != nil && err != ErrNotFound {
				return err
			}
			if _, err := io.WriteString(w, body); err != nil {
				return err
			}
		}
		key = next
	}
	return nil
}

// locatorFromStage looks up id's locator in the staging store only.
func (e *Engine) locatorFromStage(id string) (*Locator, error) {
	v, err := e.seqStage.Fetch([]byte(id))
	if err != nil || v == nil {
		return nil, err
	}
	loc, err := ParseLocator(string(v))
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// locatorFor looks up id's locator, trying the staging store first and
// the retained store second.
func (e *Engine) locatorFor(id string) (*Locator, error) {
	loc, err := e.locatorFromStage(id)
	if err != nil || loc != nil {
		return loc, err
	}
	v, err := e.seqMain.Fetch([]byte(id))
	if err != nil || v == nil {
		return nil, err
	}
	l, err := ParseLocator(string(v))
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// fetchBodyByID resolves id to its body, staging first then main,
// matching the fallback order used throughout indexing and sweeping. It
// returns "" with a nil error if id cannot be resolved at all.
func (e *Engine) fetchBodyByID(id string) (string, error) {
	loc, err := e.locatorFor(id)
	if err != nil {
		return "", err
	}
	if loc == nil {
		return "", nil
	}
	body, err := e.fetcher.Fetch(*loc, false)
	if err != nil {
		if err == ErrNotFound {
			return "", nil
		}
		return "", err
	}
	return body, nil
}
