// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package redundancy

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kortschak/nr/internal/store"
)

// IngestResult summarizes a single call to Ingest.
type IngestResult struct {
	Staged    int
	Rejected  int
	Duplicate int
}

// Ingest is the Record Ingestor (component C). It scans r, one header
// line (beginning with '>') and its following body lines at a time,
// derives a canonical id and a byte-offset Locator for each record, and
// stages id -> locator into stage.
//
// A record whose body length is less than or equal to rejectSize is
// discarded. A record whose id is already present in stage is a
// duplicate within this file: the first occurrence wins and the later
// one is discarded. Both conditions are reported through warn, if
// non-nil, with a verbosity level: the rejection message is reported at
// level 1 (verbose-only), matching the `else if(gVerbose)` gate around
// the equivalent message in original_source/nr.c's ReadSequences; the
// duplicate-id message is reported at level 0 (always), matching that
// same function's unconditional GDBM_INSERT-failure warning.
func Ingest(r io.Reader, filename string, rejectSize int, stage *store.Store, warn func(level int, msg string)) (IngestResult, error) {
	var res IngestResult
	br := bufio.NewReader(r)

	var (
		offset     int64
		entryStart int64
		id         string
		haveEntry  bool
		bodyLen    int
	)

	flush := func() error {
		if !haveEntry || id == "" {
			return nil
		}
		if bodyLen <= rejectSize {
			res.Rejected++
			if warn != nil {
				warn(1, fmt.Sprintf("sequence %s rejected: %d residues", id, bodyLen))
			}
			return nil
		}
		loc := Locator{File: filename, Offset: entryStart}
		inserted, err := stage.InsertUnique([]byte(id), []byte(loc.String()))
		if err != nil {
			return err
		}
		if !inserted {
			res.Duplicate++
			if warn != nil {
				warn(0, fmt.Sprintf("Warning (W001): duplicate id: %s", id))
			}
			return nil
		}
		res.Staged++
		return nil
	}

	for {
		line, rerr := br.ReadString('\n')
		n := int64(len(line))
		if len(line) > 0 {
			if line[0] == '>' {
				if err := flush(); err != nil {
					return res, err
				}
				entryStart = offset
				id = canonicalID(strings.TrimRight(line, "\r\n"))
				haveEntry = true
				bodyLen = 0
			} else if haveEntry {
				bodyLen += len(strings.TrimRight(line, "\r\n"))
			}
		}
		offset += n
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return res, rerr
		}
	}
	if err := flush(); err != nil {
		return res, err
	}
	return res, nil
}
