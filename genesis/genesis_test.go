package genesis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fordefi.com/solhost/manifest"
	"fordefi.com/solhost/programs/fordefi"
	"fordefi.com/solhost/pubkey"
	"fordefi.com/solhost/storage/storeconfig"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solhost.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
listen: 127.0.0.1:9000
compute_budget: 50000
mode: strict
store:
  backends:
    - name: mem
deployments:
  - name: fordefi-mainnet
    program: builtin:fordefi
    program_id: `+fordefi.ProgramIDMainnet+`
    cluster: mainnet
  - name: fordefi-devnet
    program: builtin:fordefi
    program_id: `+fordefi.ProgramIDDevnet+`
    cluster: devnet
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.ListenAddr() != "127.0.0.1:9000" {
		t.Fatalf("listen = %q", cfg.ListenAddr())
	}
	if cfg.ComputeBudget != 50000 {
		t.Fatalf("compute_budget = %d", cfg.ComputeBudget)
	}
	if len(cfg.Deployments) != 2 {
		t.Fatalf("deployments = %d", len(cfg.Deployments))
	}
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		t.Fatalf("ParseMode: %v", err)
	}
	if mode != manifest.Strict {
		t.Fatalf("mode = %v, want strict", mode)
	}
}

func TestValidateRejections(t *testing.T) {
	valid := Default()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "no deployments",
			mutate:  func(c *Config) { c.Deployments = nil },
			wantSub: "at least one deployment",
		},
		{
			name:    "missing program",
			mutate:  func(c *Config) { c.Deployments[0].Program = "" },
			wantSub: "program is required",
		},
		{
			name:    "missing program id",
			mutate:  func(c *Config) { c.Deployments[0].ProgramID = "" },
			wantSub: "program_id is required",
		},
		{
			name:    "malformed program id",
			mutate:  func(c *Config) { c.Deployments[0].ProgramID = "not-base58-0OIl" },
			wantSub: "deployment",
		},
		{
			name:    "duplicate program id",
			mutate:  func(c *Config) { c.Deployments[1].ProgramID = c.Deployments[0].ProgramID },
			wantSub: "duplicate deployment",
		},
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Mode = "paranoid" },
			wantSub: "invalid mode",
		},
		{
			name:    "empty store",
			mutate:  func(c *Config) { c.Store.Backends = nil },
			wantSub: "backend",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			cfg.Deployments = append([]Deployment(nil), valid.Deployments...)
			cfg.Store.Backends = append([]storeconfig.BackendConfig(nil), valid.Store.Backends...)
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate accepted invalid config")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("Validate error = %v, want substring %q", err, tc.wantSub)
			}
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestBuildRegistry(t *testing.T) {
	reg, err := Default().BuildRegistry()
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}
	ids := reg.IDs()
	if len(ids) != 2 {
		t.Fatalf("registered = %d, want 2", len(ids))
	}
	for _, id := range []string{fordefi.ProgramIDMainnet, fordefi.ProgramIDDevnet} {
		if _, ok := reg.Lookup(pubkey.MustFromBase58(id)); !ok {
			t.Fatalf("program %s not registered", id)
		}
	}
}

func TestBuildRegistryUnknownProgram(t *testing.T) {
	cfg := Default()
	cfg.Deployments = []Deployment{
		{Name: "mystery", Program: "builtin:mystery", ProgramID: fordefi.ProgramIDMainnet},
	}
	if _, err := cfg.BuildRegistry(); err == nil {
		t.Fatalf("BuildRegistry accepted unknown program")
	}
}
