package firewall

import (
	"strings"
	"unicode"
)

// The filter thresholds below are empirically tuned against real reports and
// ordinary prose; they are kept as-is rather than re-derived.

// seedStopwords are common English words that essentially never appear in a
// BIP39-style seed phrase. More than two hits marks the text as prose.
var seedStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "that": {}, "with": {}, "this": {},
	"from": {}, "have": {}, "are": {}, "was": {}, "not": {}, "you": {},
	"all": {}, "can": {}, "will": {}, "but": {}, "they": {}, "his": {},
	"her": {}, "its": {}, "our": {}, "what": {}, "when": {}, "then": {},
	"than": {}, "been": {}, "were": {}, "which": {}, "their": {}, "there": {},
	"would": {}, "could": {}, "should": {}, "about": {}, "into": {},
	"over": {}, "after": {}, "because": {}, "very": {}, "some": {},
	"just": {}, "also": {}, "only": {}, "more": {}, "most": {}, "other": {},
	"such": {}, "these": {}, "those": {}, "being": {}, "does": {},
}

// apiKeyPlaceholders are well-known non-secret tokens that otherwise satisfy
// the shape checks (structured markup, schema names, sample values).
var apiKeyPlaceholders = []string{
	"key",
	"string",
	"data",
	"value",
	"example",
	"placeholder",
	"insert",
	"your",
	"xxxx",
}

// looksLikeSeedPhrase classifies a 12-24 lowercase word run as a probable
// seed phrase. Requirements: every token purely alphabetic, token count in
// [12,24], at most 2 stopword hits, and near-uniqueness (at most 2 duplicate
// tokens). Ordinary prose of similar length must not pass.
func looksLikeSeedPhrase(match string) bool {
	tokens := strings.Fields(match)
	if len(tokens) < 12 || len(tokens) > 24 {
		return false
	}

	stopwordHits := 0
	seen := map[string]int{}
	duplicates := 0

	for _, token := range tokens {
		for _, r := range token {
			if !unicode.IsLower(r) {
				return false
			}
		}
		if _, ok := seedStopwords[token]; ok {
			stopwordHits++
			if stopwordHits > 2 {
				return false
			}
		}
		seen[token]++
		if seen[token] > 1 {
			duplicates++
			if duplicates > 2 {
				return false
			}
		}
	}

	return true
}

// looksLikeAPIKey classifies a long token as a probable secret. Requirements:
// length in [24,120], at least one digit and one letter, character-uniqueness
// ratio >= 0.2, not a single repeated character, and not a known placeholder.
func looksLikeAPIKey(match string) bool {
	if len(match) < 24 || len(match) > 120 {
		return false
	}

	hasDigit, hasLetter := false, false
	unique := map[rune]struct{}{}
	for _, r := range match {
		if unicode.IsDigit(r) {
			hasDigit = true
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		unique[r] = struct{}{}
	}
	if !hasDigit || !hasLetter {
		return false
	}
	if len(unique) == 1 {
		return false
	}
	if float64(len(unique))/float64(len(match)) < 0.2 {
		return false
	}

	lower := strings.ToLower(match)
	for _, placeholder := range apiKeyPlaceholders {
		if strings.Contains(lower, placeholder) {
			return false
		}
	}

	return true
}
