// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nrdump inspects the on-disk stores left behind by a run of nr
// invoked with -d that ended without its automatic clean-up, e.g. after
// a kill -KILL (nr's handler for SIGINT and SIGTERM removes the stores).
// There are five stores, each named by a fixed
// stem and suffixed with the pid of the nr process that created it:
//
//	seqhash.<pid>        retained id -> locator records
//	seqhash_temp.<pid>   staged id -> locator records, current file
//	fraghash.<pid>       fragment -> owning id
//	fragtablehash.<pid>  id -> owning fragment (inverse of fraghash)
//	deletedhash.<pid>    ids pending purge
//
// Output is a stream of JSON objects on stdout, one per entry, in the
// store's own iteration order.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kortschak/nr/internal/redundancy"
	"github.com/kortschak/nr/internal/store"
)

// record is the JSON shape written for one store entry.
type record struct {
	Key    string `json:"key"`
	Value  string `json:"value,omitempty"`
	File   string `json:"file,omitempty"`
	Offset int64  `json:"offset,omitempty"`
}

var stems = map[string]bool{
	"seqhash":       true,
	"seqhash_temp":  true,
	"fraghash":      true,
	"fragtablehash": true,
	"deletedhash":   true,
}

func main() {
	log.SetFlags(0)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s store-file\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := args[0]

	stem := stemOf(path)
	if !stems[stem] {
		fmt.Fprintf(os.Stderr, "nrdump: unrecognised store name %q (expected one of seqhash, seqhash_temp, fraghash, fragtablehash, deletedhash)\n", filepath.Base(path))
		os.Exit(2)
	}

	s, err := store.OpenExisting(path, nil)
	if err != nil {
		log.Fatalf("nrdump: %v", err)
	}
	defer s.Close()

	enc := json.NewEncoder(os.Stdout)
	key, err := s.FirstKey()
	if err != nil {
		log.Fatalf("nrdump: %v", err)
	}
	for key != nil {
		next, err := s.NextKey(key)
		if err != nil {
			log.Fatalf("nrdump: %v", err)
		}
		v, err := s.Fetch(key)
		if err != nil {
			log.Fatalf("nrdump: %v", err)
		}

		rec := record{Key: string(key)}
		switch stem {
		case "seqhash", "seqhash_temp":
			if loc, err := redundancy.ParseLocator(string(v)); err == nil {
				rec.File, rec.Offset = loc.File, loc.Offset
			} else {
				rec.Value = string(v)
			}
		default:
			rec.Value = string(v)
		}
		if err := enc.Encode(rec); err != nil {
			log.Fatalf("nrdump: %v", err)
		}

		key = next
	}
}

// stemOf strips a trailing ".<pid>" suffix from a store file's base
// name, if present.
func stemOf(path string) string {
	base := filepath.Base(path)
	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return base
	}
	if _, err := strconv.Atoi(base[i+1:]); err != nil {
		return base
	}
	return base[:i]
}
