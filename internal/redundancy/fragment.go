// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package redundancy

import "strings"

// tooManyXFraction is the maximum tolerated fraction of 'X' (unknown
// residue) characters in a body before it is rejected: excluded from
// fragment indexing and dropped.
const tooManyXFraction = 0.25

// tooManyXs reports whether body's fraction of 'X' characters exceeds
// tooManyXFraction.
func tooManyXs(body string) bool {
	if len(body) == 0 {
		return false
	}
	return float64(strings.Count(body, "X"))/float64(len(body)) > tooManyXFraction
}

// indexFragments is the Fragment Indexer (component D). It walks every
// record staged for the current file, applies the X-rejection gate
// (dropping every record that fails it), and attempts to give each
// surviving record a unique representative fragment, then purges
// whatever the gate and storeFragment marked for deletion.
func (e *Engine) indexFragments(loadOnly bool) error {
	key, err := e.seqStage.FirstKey()
	if err != nil {
		return err
	}
	for key != nil {
		id := string(key)
		next, err := e.seqStage.NextKey(key)
		if err != nil {
			return err
		}

		loc, err := e.locatorFromStage(id)
		if err != nil {
			return err
		}
		if loc != nil {
			body, ferr := e.fetcher.Fetch(*loc, false)
			if ferr != nil && ferr != ErrNotFound {
				return ferr
			}
			if body != "" {
				if tooManyXs(body) {
					e.logf(0, "Warning: too many Xs in sequence %s, skipping", id)
					if err := e.drop(id); err != nil {
						return err
					}
				} else if err := e.storeFragment(id, body, loadOnly); err != nil {
					return err
				}
			}
		}

		key = next
	}
	return e.purge()
}

// storeFragment picks a representative fragment for (id, body) by
// scanning every offset for one not already owned by another sequence.
// The fragment actually compared and stored is F-1 bytes long, matching
// the truncation in original_source/nr.c's StoreSequenceFragment.
//
// If every candidate fragment is already owned, the sequence cannot be
// given a unique fragment and is dropped unconditionally; in that case,
// unless loadOnly, a redundancy probe is run first purely to produce a
// more informative log message — its outcome never changes the drop.
func (e *Engine) storeFragment(id, body string, loadOnly bool) error {
	fragLen := e.cfg.FragmentSize - 1
	maxOffset := len(body) - e.cfg.FragmentSize
	var sawX, sawNoX bool

	for offset := 0; offset < maxOffset; offset++ {
		frag := body[offset : offset+fragLen]
		if strings.ContainsRune(frag, 'X') {
			sawX = true
			continue
		}
		sawNoX = true
		inserted, err := e.fragIndex.InsertUnique([]byte(frag), []byte(id))
		if err != nil {
			return err
		}
		if inserted {
			_, err := e.fragTable.InsertUnique([]byte(id), []byte(frag))
			return err
		}
	}

	if loadOnly {
		e.logf(0, "Warning (W002): can't find unique fragment for %s (length=%d)", id, len(body))
		return e.drop(id)
	}

	parent, err := e.redundancyProbe(id, body)
	if err != nil {
		return err
	}
	switch {
	case parent != "":
		e.logf(1, "INFO: %s superceeds %s", parent, id)
	case sawNoX:
		e.logf(0, "Warning (W002): can't find unique fragment for %s (length=%d)", id, len(body))
	case sawX:
		e.logf(0, "Warning (W003): no fragment without X found for %s (length=%d)", id, len(body))
	default:
		e.logf(0, "Warning (W002): can't find unique fragment for %s (length=%d)", id, len(body))
	}
	return e.drop(id)
}

// redundancyProbe re-scans (id, body)'s candidate fragments, each of
// which is already owned by some other indexed id, asking whether that
// owner is related to this sequence by containment. It returns the
// owner's id on the first such relationship found, or "" if none is
// found. It never itself causes a deletion; see storeFragment.
func (e *Engine) redundancyProbe(id, body string) (string, error) {
	fragLen := e.cfg.FragmentSize - 1
	maxOffset := len(body) - e.cfg.FragmentSize
	for offset := 0; offset < maxOffset; offset++ {
		frag := body[offset : offset+fragLen]
		if strings.ContainsRune(frag, 'X') {
			continue
		}
		ownerB, err := e.fragIndex.Fetch([]byte(frag))
		if err != nil {
			return "", err
		}
		if ownerB == nil {
			continue
		}
		owner := string(ownerB)
		ownerBody, err := e.fetchBodyByID(owner)
		if err != nil {
			return "", err
		}
		if ownerBody == "" {
			continue
		}
		if compareSequences(body, id, ownerBody, owner) != different {
			return owner, nil
		}
	}
	return "", nil
}
