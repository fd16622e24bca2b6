// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package redundancy

// sweep is the Redundancy Sweeper (component E): a second pass over
// every record staged for the current file, this time with no X filter,
// looking for a fragment-index collision that proves one sequence
// contains the other. It must not be called for a file declared
// load-only.
func (e *Engine) sweep() error {
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

		deleted, err := e.deleted.Fetch(key)
		if err != nil {
			return err
		}
		if deleted == nil {
			if err := e.sweepOne(id); err != nil {
				return err
			}
		}

		key = next
	}
	return e.purge()
}

// sweepOne scans every fragment position of id's body for an owner
// other than id, comparing bodies on each collision. The first
// comparison that finds a winner either drops the other sequence and
// continues scanning, or drops id itself and stops immediately, matching
// doDropRedundancy's early exit in original_source/nr.c.
func (e *Engine) sweepOne(id string) error {
	loc, err := e.locatorFromStage(id)
	if err != nil || loc == nil {
		return err
	}
	body, err := e.fetcher.Fetch(*loc, false)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}

	fragLen := e.cfg.FragmentSize - 1
	maxOffset := len(body) - e.cfg.FragmentSize
	for offset := 0; offset < maxOffset; offset++ {
		frag := body[offset : offset+fragLen]
		ownerB, err := e.fragIndex.Fetch([]byte(frag))
		if err != nil {
			return err
		}
		if ownerB == nil {
			continue
		}
		other := string(ownerB)
		if other == id {
			continue
		}
		otherBody, err := e.fetchBodyByID(other)
		if err != nil {
			return err
		}
		if otherBody == "" {
			continue
		}

		switch compareSequences(body, id, otherBody, other) {
		case firstWins:
			e.logf(1, "INFO: %s superceeds %s", id, other)
			if err := e.drop(other); err != nil {
				return err
			}
		case secondWins:
			e.logf(1, "INFO: %s superceeds %s", other, id)
			return e.drop(id)
		}
	}
	return nil
}
