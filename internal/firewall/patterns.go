package firewall

import "regexp"

// Pattern names are part of the reporting contract; trips are recorded under
// these names.
const (
	PatternPrivateKey = "Potential private key"
	PatternEthereum   = "Ethereum address"
	PatternBitcoin    = "Bitcoin address"
	PatternAPIKey     = "API key or token"
	PatternCredential = "Credential assignment"
	PatternSeedPhrase = "Potential seed phrase"
)

// pattern is one entry of the declarative bank: a name, a matcher, and an
// optional post-filter that suppresses false positives. Patterns are
// evaluated uniformly in bank order; adding or removing one never touches
// control flow.
type pattern struct {
	name       string
	re         *regexp.Regexp
	postFilter func(match string) bool
}

// patternBank returns the ordered sensitive-data patterns.
func patternBank() []pattern {
	return []pattern{
		{
			name: PatternPrivateKey,
			re:   regexp.MustCompile(`[0-9a-fA-F]{64,}`),
		},
		{
			name: PatternEthereum,
			re:   regexp.MustCompile(`\b0x[0-9a-fA-F]{40}\b`),
		},
		{
			name: PatternBitcoin,
			re:   regexp.MustCompile(`\b[13][a-km-zA-HJ-NP-Z1-9]{24,33}\b`),
		},
		{
			name:       PatternAPIKey,
			re:         regexp.MustCompile(`\b[A-Za-z0-9_\-]{32,}\b`),
			postFilter: looksLikeAPIKey,
		},
		{
			name: PatternCredential,
			re: regexp.MustCompile(
				`(?i)\b(?:password|passwd|pwd|secret|token|api[_-]?key|apikey|private[_-]?key|auth)["']?\s*[=:]\s*["']?\S{4,}`),
		},
		{
			name:       PatternSeedPhrase,
			re:         regexp.MustCompile(`\b[a-z]+(?: [a-z]+){11,23}\b`),
			postFilter: looksLikeSeedPhrase,
		},
	}
}
