/*
Package negotiate selects a representation from client preference headers.

Accept picks a media type from an Accept header, Encoding picks a content-coding
from an Accept-Encoding header and Charset picks a character set from an
Accept-Charset header. None of the functions fail: a false result means nothing the
caller offers is acceptable, which is usually answered with 406 Not Acceptable.
*/
package negotiate

import (
	"strings"

	"github.com/illuscio-dev/spangraph-go/mimetype"
)

// Match is the outcome of negotiating one candidate against an Accept header.
type Match struct {
	// Candidate as passed by the caller.
	Candidate mimetype.MimeType
	// The most specific range matching the candidate.
	Range mimetype.MediaRange
	// Specificity of Range. See mimetype.MediaRange.Specificity.
	Specificity int
	// Quality of Range.
	Q float64
	// Position of the candidate in the caller's list.
	Index int
}

// Beats reports whether match ranks above other. Matches compare by specificity,
// then by q, then by candidate order.
func (match Match) Beats(other Match) bool {
	if match.Specificity != other.Specificity {
		return match.Specificity > other.Specificity
	}
	if match.Q != other.Q {
		return match.Q > other.Q
	}
	return match.Index < other.Index
}

// anyRange is used for an empty or absent Accept header.
var anyRange = mimetype.MediaRange{Type: mimetype.Wildcard, Subtype: mimetype.Wildcard, Q: 1}

/*
ParseAccept splits an Accept header into media ranges in header order. Malformed
ranges are skipped. An empty header yields a single "*\/*" range.
*/
func ParseAccept(header string) []mimetype.MediaRange {
	if strings.TrimSpace(header) == "" {
		return []mimetype.MediaRange{anyRange}
	}

	var ranges []mimetype.MediaRange
	for _, element := range splitList(header) {
		mediaRange, err := mimetype.ParseMediaRange(element)
		if err != nil {
			continue
		}
		ranges = append(ranges, mediaRange)
	}
	return ranges
}

/*
Accept returns the candidate the client prefers most, or false if no candidate is
acceptable.

For each candidate the most specific matching range decides its rank: an exact
type/subtype beats "type/*" which beats "*\/*", parameters on a range narrow it
further, and among equally specific ranges the highest q is used. A candidate whose
deciding range has q=0 is excluded. The candidate with the best (specificity, q)
wins, ties going to the candidate listed first.
*/
func Accept(
	header string, candidates []mimetype.MimeType,
) (mimeType mimetype.MimeType, ok bool) {
	match, ok := AcceptMatch(header, candidates)
	if !ok {
		return mimetype.UNKNOWN, false
	}
	return match.Candidate, true
}

// AcceptMatch is Accept returning the full Match, for callers that want to report
// why a candidate won.
func AcceptMatch(header string, candidates []mimetype.MimeType) (Match, bool) {
	ranges := ParseAccept(header)

	var best Match
	found := false

	for index, candidate := range candidates {
		match, ok := matchCandidate(ranges, candidate)
		if !ok {
			continue
		}
		match.Index = index
		if !found || match.Beats(best) {
			best = match
			found = true
		}
	}

	return best, found
}

// Returns the deciding range for candidate. false if no range matches or the
// deciding range excludes the candidate.
func matchCandidate(
	ranges []mimetype.MediaRange, candidate mimetype.MimeType,
) (Match, bool) {
	parsed, err := mimetype.ParseMediaType(string(candidate))
	if err != nil {
		return Match{}, false
	}

	match := Match{Candidate: candidate}
	found := false

	for _, mediaRange := range ranges {
		if !mediaRange.Matches(parsed) {
			continue
		}
		thisMatch := Match{
			Candidate:   candidate,
			Range:       mediaRange,
			Specificity: mediaRange.Precedence(parsed),
			Q:           mediaRange.Q,
		}
		if !found ||
			thisMatch.Specificity > match.Specificity ||
			(thisMatch.Specificity == match.Specificity && thisMatch.Q > match.Q) {
			match = thisMatch
			found = true
		}
	}

	if !found || match.Q == 0 {
		return Match{}, false
	}
	return match, true
}

// Splits a header list on commas outside of quoted strings.
func splitList(header string) []string {
	var elements []string
	inQuotes := false
	start := 0

	for i := 0; i < len(header); i++ {
		switch header[i] {
		case '\\':
			if inQuotes {
				i++
			}
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				elements = appendElement(elements, header[start:i])
				start = i + 1
			}
		}
	}
	return appendElement(elements, header[start:])
}

func appendElement(elements []string, element string) []string {
	element = strings.TrimSpace(element)
	if element == "" {
		return elements
	}
	return append(elements, element)
}
