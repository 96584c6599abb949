package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore holds deployer seeds on the local filesystem: one directory per
// key name, the root seed in root.key, and role-derived subkeys under roles/.
// Seed files are hex text, mode 0600, and are never overwritten unless the
// caller asks.
//
// Ed25519 only. Derivation is deterministic (see DeriveRoleSeed), so a role
// key can always be recomputed from the root seed.
type KeyStore struct {
	Directory string
}

// KeyEntry describes one stored key and the roles derived from it.
type KeyEntry struct {
	Name  string
	Roles []string
}

func GetDefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".solhost", "keys"), nil
}

// CreateKeyStore opens a store rooted at directory, or the default
// ~/.solhost/keys when directory is empty.
func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		def, err := GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
		directory = def
	}
	return &KeyStore{Directory: directory}, nil
}

// checkIdent enforces the [A-Za-z0-9_-] charset shared by key names and
// roles, which keeps every identifier usable as a path segment.
func checkIdent(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return fmt.Errorf("invalid character %q in %s", r, kind)
		}
	}
	return nil
}

func CheckKeyName(name string) error { return checkIdent("key name", name) }

func CheckRole(role string) error { return checkIdent("role", role) }

// ParseSeedHex decodes a 32-byte ed25519 seed from hex (0x prefix allowed).
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return seed, nil
}

func (ks *KeyStore) rootSeedPath(name string) string {
	return filepath.Join(ks.Directory, name, "root.key")
}

func (ks *KeyStore) roleSeedPath(name, role string) string {
	return filepath.Join(ks.Directory, name, "roles", role+".key")
}

func (ks *KeyStore) writeSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (ks *KeyStore) readSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}

// InitializeRootKey stores seed as the root key for name and returns the
// authority key rendering and the file path.
func (ks *KeyStore) InitializeRootKey(name string, seed []byte, overwrite bool) (authorityKey string, filePath string, err error) {
	if err := CheckKeyName(name); err != nil {
		return "", "", err
	}
	filePath = ks.rootSeedPath(name)
	if err := ks.writeSeed(filePath, seed, overwrite); err != nil {
		return "", "", err
	}
	return AuthorityKeyFromSeed(seed), filePath, nil
}

// DeriveKeyFromRole derives and stores the role subkey of an existing root key.
func (ks *KeyStore) DeriveKeyFromRole(from, role string, overwrite bool) (authorityKey string, filePath string, err error) {
	if err := CheckKeyName(from); err != nil {
		return "", "", err
	}
	if err := CheckRole(role); err != nil {
		return "", "", err
	}
	rootSeed, err := ks.readSeed(ks.rootSeedPath(from))
	if err != nil {
		return "", "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return "", "", err
	}
	filePath = ks.roleSeedPath(from, role)
	if err := ks.writeSeed(filePath, roleSeed, overwrite); err != nil {
		return "", "", err
	}
	return AuthorityKeyFromSeed(roleSeed), filePath, nil
}

// ExportKey returns the authority key rendering of a stored key without
// exposing the seed. An empty role exports the root key.
func (ks *KeyStore) ExportKey(name, role string) (string, error) {
	if err := CheckKeyName(name); err != nil {
		return "", err
	}
	path := ks.rootSeedPath(name)
	if role != "" {
		if err := CheckRole(role); err != nil {
			return "", err
		}
		path = ks.roleSeedPath(name, role)
	}
	seed, err := ks.readSeed(path)
	if err != nil {
		return "", err
	}
	return AuthorityKeyFromSeed(seed), nil
}

// LoadSeed resolves the CLI's signer flag triple: an inline hex seed, a seed
// file path, or a stored key name with optional role. Exactly one source is
// expected; precedence is seedHex, keyFile, then signerName.
func (ks *KeyStore) LoadSeed(seedHex, signerName, signerRole, keyFile string) ([]byte, error) {
	switch {
	case seedHex != "":
		return ParseSeedHex(seedHex)
	case keyFile != "":
		return ks.readSeed(keyFile)
	case signerName != "":
		if err := CheckKeyName(signerName); err != nil {
			return nil, err
		}
		if signerRole == "" {
			return ks.readSeed(ks.rootSeedPath(signerName))
		}
		if err := CheckRole(signerRole); err != nil {
			return nil, err
		}
		return ks.readSeed(ks.roleSeedPath(signerName, signerRole))
	default:
		return nil, errors.New("no signer provided")
	}
}

// ListKeys reports the stored key names and their derived roles, sorted.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	dirs, err := os.ReadDir(ks.Directory)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []KeyEntry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		entry := KeyEntry{Name: d.Name()}
		roleFiles, rerr := os.ReadDir(filepath.Join(ks.Directory, d.Name(), "roles"))
		if rerr == nil {
			for _, rf := range roleFiles {
				if rf.IsDir() || !strings.HasSuffix(rf.Name(), ".key") {
					continue
				}
				entry.Roles = append(entry.Roles, strings.TrimSuffix(rf.Name(), ".key"))
			}
			sort.Strings(entry.Roles)
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
