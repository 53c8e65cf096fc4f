package negotiate

import (
	"strings"

	"github.com/illuscio-dev/spangraph-go/mimetype"
)

// Identity is the content-coding meaning "no transformation".
const Identity = "identity"

// lowest is the rank given to identity when the header neither names it nor uses "*".
const lowest = 0.001

// TokenRange is one entry of an Accept-Encoding or Accept-Charset header.
type TokenRange struct {
	// Lower-cased token, or "*".
	Token string
	Q     float64
}

// ParseTokens splits an Accept-Encoding or Accept-Charset header into token ranges.
// Malformed entries are skipped.
func ParseTokens(header string) []TokenRange {
	var ranges []TokenRange

	for _, element := range splitList(header) {
		parts := strings.Split(element, ";")
		token := strings.ToLower(strings.TrimSpace(parts[0]))
		if token == "" || strings.ContainsAny(token, " \t/=") {
			continue
		}

		tokenRange := TokenRange{Token: token, Q: 1}
		valid := true
		for _, param := range parts[1:] {
			name, value, hasValue := strings.Cut(strings.TrimSpace(param), "=")
			if !hasValue {
				valid = false
				break
			}
			if strings.ToLower(strings.TrimSpace(name)) != "q" {
				continue
			}
			q, err := mimetype.ParseQuality(value)
			if err != nil {
				valid = false
				break
			}
			tokenRange.Q = q
		}

		if valid {
			ranges = append(ranges, tokenRange)
		}
	}

	return ranges
}

// Returns the q the ranges give token. An exact entry beats "*". ok is false when no
// entry mentions the token.
func tokenQuality(ranges []TokenRange, token string) (q float64, ok bool) {
	token = strings.ToLower(token)
	wildcard := -1.0

	for _, tokenRange := range ranges {
		switch tokenRange.Token {
		case token:
			return tokenRange.Q, true
		case mimetype.Wildcard:
			wildcard = tokenRange.Q
		}
	}

	if wildcard >= 0 {
		return wildcard, true
	}
	return 0, false
}

// Picks the candidate with the highest q, ties going to the earliest candidate.
func bestToken(ranges []TokenRange, candidates []string) (string, float64, bool) {
	best := ""
	bestQ := 0.0
	found := false

	for _, candidate := range candidates {
		q, ok := tokenQuality(ranges, candidate)
		if !ok || q == 0 {
			continue
		}
		if !found || q > bestQ {
			best = candidate
			bestQ = q
			found = true
		}
	}

	return best, bestQ, found
}

/*
Encoding picks a content-coding from an Accept-Encoding header.

codings lists the codings the caller can produce, most preferred first. identity is
always available: it ranks last unless the header names it or matches it with "*",
and it is only refused by "identity;q=0", or by "*;q=0" when identity is not named.
An empty header selects identity.

An exact entry decides a coding's q over "*". The coding with the highest q wins and
ties go to the coding listed first.
*/
func Encoding(header string, codings []string) (coding string, ok bool) {
	if strings.TrimSpace(header) == "" {
		return Identity, true
	}

	ranges := ParseTokens(header)

	candidates := make([]string, 0, len(codings)+1)
	for _, thisCoding := range codings {
		if strings.ToLower(thisCoding) != Identity {
			candidates = append(candidates, thisCoding)
		}
	}

	coding, q, ok := bestToken(ranges, candidates)

	identityQ, mentioned := tokenQuality(ranges, Identity)
	if !mentioned {
		identityQ = lowest
	}
	if identityQ > 0 && (!ok || identityQ > q) {
		return Identity, true
	}

	return coding, ok
}

// Charset picks a character set from an Accept-Charset header. charsets lists the
// sets the caller can produce, most preferred first. An empty header selects the first
// charset. Ranking follows Encoding without the implicit identity member.
func Charset(header string, charsets []string) (charset string, ok bool) {
	if len(charsets) == 0 {
		return "", false
	}
	if strings.TrimSpace(header) == "" {
		return charsets[0], true
	}

	charset, _, ok = bestToken(ParseTokens(header), charsets)
	return charset, ok
}
