// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package redundancy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Locator identifies where a record begins in its source file: the byte
// offset of the '>' that starts its header line.
type Locator struct {
	File   string
	Offset int64
}

// String encodes the locator the way it is stored as a sequence-store
// value, matching the original tool's "%s %ld" datum encoding.
func (l Locator) String() string {
	return fmt.Sprintf("%s %d", l.File, l.Offset)
}

// ParseLocator decodes a locator previously produced by Locator.String.
func ParseLocator(s string) (Locator, error) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return Locator{}, fmt.Errorf("redundancy: malformed locator %q", s)
	}
	offset, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return Locator{}, fmt.Errorf("redundancy: malformed locator %q: %w", s, err)
	}
	return Locator{File: s[:i], Offset: offset}, nil
}

// ErrNotFound is returned by Fetcher.Fetch when a locator cannot be
// resolved to a sequence body.
var ErrNotFound = errors.New("redundancy: sequence not found")

// Fetcher resolves locators to sequence bodies (component A, the
// SequenceLocator/BodyFetcher). It caches a single open *os.File,
// reopening only when the requested filename changes — the same
// optimization as the original tool's static fp/lastFilename pair in
// GetSequence.
type Fetcher struct {
	file *os.File
	name string
}

// Fetch reads the record at loc. If withHeader is false, the header
// line is skipped and line terminators are stripped from the returned
// body; if true, the header and body are returned verbatim, including
// their original line terminators.
func (f *Fetcher) Fetch(loc Locator, withHeader bool) (string, error) {
	if f.file == nil || loc.File != f.name {
		if f.file != nil {
			f.file.Close()
			f.file = nil
		}
		file, err := os.Open(loc.File)
		if err != nil {
			return "", ErrNotFound
		}
		f.file = file
		f.name = loc.File
	}

	if _, err := f.file.Seek(loc.Offset, io.SeekStart); err != nil {
		return "", ErrNotFound
	}

	r := bufio.NewReader(f.file)
	header, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", ErrNotFound
	}
	if len(header) == 0 {
		return "", ErrNotFound
	}

	var buf strings.Builder
	if withHeader {
		buf.WriteString(header)
	}

	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			if line[0] == '>' {
				break
			}
			if withHeader {
				buf.WriteString(line)
			} else {
				buf.WriteString(strings.TrimRight(line, "\r\n"))
			}
		}
		if err != nil {
			break
		}
	}

	if buf.Len() == 0 {
		return "", ErrNotFound
	}
	return buf.String(), nil
}

// Close releases the cached file handle, if any.
func (f *Fetcher) Close() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
