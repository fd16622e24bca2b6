// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nr builds a non-redundant sequence set from one or more
// FASTA-like input files, discarding any sequence that is a contiguous
// substring of another retained sequence.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kortschak/nr/internal/redundancy"
)

// verbosity is a flag.Value that counts the number of times -v appears
// on the command line, rather than requiring -v=N.
type verbosity int

func (v *verbosity) String() string   { return fmt.Sprintf("%d", int(*v)) }
func (v *verbosity) Set(string) error { *v++; return nil }
func (v *verbosity) IsBoolFlag() bool { return true }

func main() {
	log.SetFlags(0)

	var verbose verbosity
	flag.Var(&verbose, "v", "increase verbosity (repeatable)")
	out := flag.String("o", "", "output file (stdout if not given)")
	firstIsNR := flag.Bool("n", false, "first input file is already known non-redundant")
	fragSize := flag.Int("f", redundancy.DefaultFragmentSize, "fragment size used for indexing")
	rejectSize := flag.Int("r", 0, "reject sequences with this many residues or fewer (default: 2x fragment size)")
	tmpDir := flag.String("d", "", "directory for temporary on-disk stores (default: $NR_TMPDIR or /tmp)")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `nr: build a non-redundant sequence set

Usage: %[1]s [-v] [-o out] [-n] [-f fragsize] [-r rejectsize] [-d tmpdir] file1 [file2 ...]

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	dir := *tmpDir
	if dir == "" {
		if d := os.Getenv("NR_TMPDIR"); d != "" {
			dir = d
		} else {
			dir = "/tmp"
		}
	}

	reject := *rejectSize
	if reject <= 0 {
		reject = 2 * *fragSize
	}

	eng, err := redundancy.New(redundancy.Config{
		Dir:          dir,
		FragmentSize: *fragSize,
		RejectSize:   reject,
		Verbose:      int(verbose),
	})
	if err != nil {
		log.Fatalf("nr: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sig:
			// Best-effort clean-up of the on-disk stores on interrupt;
			// the data being built is not worth preserving mid-run.
			eng.Cleanup()
			os.Exit(1)
		case <-done:
		}
	}()
	defer close(done)
	defer eng.Cleanup()

	for i, file := range files {
		loadOnly := *firstIsNR && i == 0
		if err := eng.ProcessFile(file, loadOnly); err != nil {
			log.Printf("nr: %v", err)
			continue
		}
	}

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("nr: can't write %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}
	if err := eng.Emit(w); err != nil {
		log.Fatalf("nr: %v", err)
	}
}
