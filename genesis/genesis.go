// Package genesis loads the daemon deployment configuration: which programs
// are deployed under which identities, how the artifact store is opened, and
// how strictly manifests are checked.
package genesis

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fordefi.com/solhost/manifest"
	"fordefi.com/solhost/programs/fordefi"
	"fordefi.com/solhost/pubkey"
	"fordefi.com/solhost/runtime"
	"fordefi.com/solhost/storage/storeconfig"
)

// DefaultListen is the daemon listen address when the config omits one.
const DefaultListen = "127.0.0.1:7787"

// Config is the daemon configuration document.
//
// Example:
//
//	listen: 127.0.0.1:7787
//	mode: strict
//	store:
//	  backends:
//	    - name: localfs
//	      config: {localfs-dir: /var/lib/solhost/artifacts}
//	deployments:
//	  - name: fordefi
//	    program: builtin:fordefi
//	    program_id: 9Weyw3FD5WuXdXMcMMiCRusTQwNLZaMeWQPBKBpFFjwa
//	    cluster: mainnet
type Config struct {
	Listen        string             `yaml:"listen,omitempty"`
	ComputeBudget uint64             `yaml:"compute_budget,omitempty"`
	LogLimit      int                `yaml:"log_limit,omitempty"`
	Mode          string             `yaml:"mode,omitempty"`
	PolicyFile    string             `yaml:"policy_file,omitempty"`
	Store         storeconfig.Config `yaml:"store"`
	Deployments   []Deployment       `yaml:"deployments"`
}

// Deployment binds one program implementation to one identity.
type Deployment struct {
	// Name is a human label; it does not affect routing.
	Name string `yaml:"name"`
	// Program selects the implementation, e.g. "builtin:fordefi".
	Program string `yaml:"program"`
	// ProgramID is the base58 identity the program is deployed under.
	ProgramID string `yaml:"program_id"`
	Cluster   string `yaml:"cluster,omitempty"`
}

// Default is the zero-config deployment: both greeter targets over an
// in-memory store.
func Default() Config {
	return Config{
		Listen: DefaultListen,
		Store: storeconfig.Config{
			Backends: []storeconfig.BackendConfig{{Name: "mem"}},
		},
		Deployments: []Deployment{
			{Name: "fordefi-mainnet", Program: "builtin:fordefi", ProgramID: fordefi.ProgramIDMainnet, Cluster: "mainnet"},
			{Name: "fordefi-devnet", Program: "builtin:fordefi", ProgramID: fordefi.ProgramIDDevnet, Cluster: "devnet"},
		},
	}
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("genesis: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Deployments) == 0 {
		return errors.New("genesis: at least one deployment is required")
	}
	seen := make(map[string]struct{}, len(c.Deployments))
	for _, d := range c.Deployments {
		if d.Program == "" {
			return fmt.Errorf("genesis: deployment %q: program is required", d.Name)
		}
		if d.ProgramID == "" {
			return fmt.Errorf("genesis: deployment %q: program_id is required", d.Name)
		}
		if _, err := pubkey.FromBase58(d.ProgramID); err != nil {
			return fmt.Errorf("genesis: deployment %q: %w", d.Name, err)
		}
		if _, dup := seen[d.ProgramID]; dup {
			return fmt.Errorf("genesis: duplicate deployment of %s", d.ProgramID)
		}
		seen[d.ProgramID] = struct{}{}
	}
	if _, err := ParseMode(c.Mode); err != nil {
		return err
	}
	return c.Store.Validate()
}

// ParseMode maps the config's mode field to a manifest verification mode.
// Empty means permissive.
func ParseMode(s string) (manifest.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "permissive":
		return manifest.Permissive, nil
	case "strict":
		return manifest.Strict, nil
	default:
		return manifest.Permissive, fmt.Errorf("genesis: invalid mode %q (expected permissive or strict)", s)
	}
}

// ListenAddr returns the configured listen address or DefaultListen.
func (c Config) ListenAddr() string {
	if c.Listen == "" {
		return DefaultListen
	}
	return c.Listen
}

// BuildRegistry instantiates every configured deployment.
func (c Config) BuildRegistry() (*runtime.Registry, error) {
	reg := runtime.NewRegistry()
	for _, d := range c.Deployments {
		id, err := pubkey.FromBase58(d.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("genesis: deployment %q: %w", d.Name, err)
		}
		switch d.Program {
		case "builtin:fordefi":
			if err := reg.Register(fordefi.New(id)); err != nil {
				return nil, fmt.Errorf("genesis: deployment %q: %w", d.Name, err)
			}
		default:
			return nil, fmt.Errorf("genesis: deployment %q: unknown program %q", d.Name, d.Program)
		}
	}
	return reg, nil
}

// HostOptions derives runtime options from the config.
func (c Config) HostOptions() []runtime.Option {
	var opts []runtime.Option
	if c.ComputeBudget > 0 {
		opts = append(opts, runtime.WithComputeBudget(c.ComputeBudget))
	}
	if c.LogLimit > 0 {
		opts = append(opts, runtime.WithLogLimit(c.LogLimit))
	}
	return opts
}
