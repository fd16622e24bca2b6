// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package redundancy

import "strings"

// compareResult is the outcome of comparing two sequence bodies.
type compareResult int

const (
	// different indicates neither body contains the other.
	different compareResult = iota
	// firstWins indicates the first body supersedes the second.
	firstWins
	// secondWins indicates the second body supersedes the first.
	secondWins
)

// compareSequences is the sequence comparator (component H): a sequence
// supersedes another it strictly contains as a contiguous substring; if
// the two bodies are equal, the lexicographically greater id wins. It is
// a direct port of original_source/nr.c's CompareSequences.
func compareSequences(seq1, id1, seq2, id2 string) compareResult {
	switch {
	case len(seq2) < len(seq1):
		if strings.Contains(seq1, seq2) {
			return firstWins
		}
	case len(seq1) < len(seq2):
		if strings.Contains(seq2, seq1) {
			return secondWins
		}
	default:
		if seq1 == seq2 {
			if id1 > id2 {
				return firstWins
			}
			return secondWins
		}
	}
	return different
}
