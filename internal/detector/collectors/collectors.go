// Package collectors ships the built-in evidence detectors. Every collector
// is best-effort: external tools run under per-call timeouts and any failure
// degrades to an errored or partial result instead of aborting the run.
package collectors

import (
	"context"
	"runtime"

	"github.com/driftsec/hostsentry/internal/detector"
)

// CoreKeys are the detectors of the first phase, always run.
var CoreKeys = []string{
	"process",
	"persistence",
	"network",
	"privacy",
	"browser",
	"accounts",
}

// AdaptiveKeys are the detectors of the conditional second phase.
var AdaptiveKeys = []string{
	"wallet",
	"cryptonet",
}

// NewRegistry returns a registry with all built-in detectors registered.
func NewRegistry() *detector.Registry {
	r := detector.NewRegistry()
	factories := map[string]detector.Factory{
		"process":     NewProcess,
		"persistence": NewPersistence,
		"network":     NewNetwork,
		"privacy":     NewPrivacy,
		"browser":     NewBrowser,
		"accounts":    NewAccounts,
		"wallet":      NewWallet,
		"cryptonet":   NewCryptoNet,
	}
	for key, factory := range factories {
		_ = r.Register(key, factory)
	}
	return r
}

// resolveSignature verifies a binary's code signature, memoized through the
// run's signature cache by the callers.
func resolveSignature(env detector.Env) func(context.Context, string) string {
	return func(ctx context.Context, path string) string {
		if runtime.GOOS != "darwin" {
			return "unverified"
		}
		if _, err := detector.RunCommand(ctx, env.CommandTimeout(), "codesign", "--verify", path); err != nil {
			return "unsigned"
		}
		return "valid"
	}
}
