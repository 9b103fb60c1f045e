package indicator

import "github.com/driftsec/hostsentry/pkg/types"

// blockchainTerms is the static dictionary for the blockchain domain.
// Matched case-insensitively as substrings.
var blockchainTerms = []string{
	"uniswap",
	"metamask",
	"phantom",
	"coinbase",
	"binance",
	"kraken",
	"opensea",
	"wallet",
	"ledger",
	"trezor",
	"exodus",
	"electrum",
	"ethereum",
	"bitcoin",
	"solana",
	"crypto",
	"defi",
	"keystore",
	"seed phrase",
	"mnemonic",
}

// DefaultProbes returns the registered domain probes. The blockchain domain
// watches process command lines and browser extension inventories.
func DefaultProbes() []Probe {
	return []Probe{
		{
			DetectorKey: "process",
			Domain:      "blockchain",
			Fields: func(f types.Finding) []string {
				return []string{f.Description, f.Fields["name"], f.Fields["command"]}
			},
			Terms: blockchainTerms,
		},
		{
			DetectorKey: "browser",
			Domain:      "blockchain",
			Fields: func(f types.Finding) []string {
				return []string{f.Description, f.Fields["extension"], f.Fields["url"]}
			},
			Terms: blockchainTerms,
		},
	}
}
