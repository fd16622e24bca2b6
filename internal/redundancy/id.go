// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package redundancy

import "strings"

// maxKeyLen is the inclusive byte cap, including a terminator byte, on a
// canonical identifier.
const maxKeyLen = 32

// canonicalID derives the canonical identifier from a FASTA header line.
// header must start with '>' and have any trailing line terminator
// already stripped.
//
// The rule, ported from the id-extraction block in
// original_source/nr.c's ReadSequences: take the text after the first
// '|'; for a PDB-style header ("pdb|XXXX|C...") keep only the database
// code plus one chain character ("XXXX|C"), dropping a bare trailing
// separator if no chain character follows; for any other header,
// truncate at the following '|'; if there is no '|' at all, take
// everything after '>' up to the key-length cap.
func canonicalID(header string) string {
	if len(header) == 0 || header[0] != '>' {
		return ""
	}
	rest := header[1:]

	first := strings.IndexByte(rest, '|')
	if first < 0 {
		return capKey(rest)
	}
	key := capKey(rest[first+1:])

	if strings.HasPrefix(rest, "pdb") {
		sep := strings.IndexByte(key, '|')
		if sep < 0 {
			return key
		}
		if sep+1 < len(key) {
			end := sep + 2
			if end > len(key) {
				end = len(key)
			}
			return key[:end]
		}
		return key[:sep]
	}

	sep := strings.IndexByte(key, '|')
	if sep < 0 {
		return key
	}
	return key[:sep]
}

// capKey truncates s to the key-length cap, leaving room for the
// terminator byte the original implementation reserved.
func capKey(s string) string {
	if len(s) > maxKeyLen-1 {
		return s[:maxKeyLen-1]
	}
	return s
}
