package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"fordefi.com/solhost/artifactid"
	"fordefi.com/solhost/keys"
	"fordefi.com/solhost/model"
	"fordefi.com/solhost/rpc"
	"fordefi.com/solhost/storage"
	"fordefi.com/solhost/storage/storeregistry"

	_ "fordefi.com/solhost/storage/localfs"
	_ "fordefi.com/solhost/storage/memcas"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "artifact":
		return cmdArtifact(args[1:], out, errOut)
	case "bundle":
		return cmdBundle(args[1:], out, errOut)
	case "invoke":
		return cmdInvoke(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "manifest":
		return cmdManifest(args[1:], out, errOut)
	case "policy":
		return cmdPolicy(args[1:], out, errOut)
	case "programs":
		return cmdPrograms(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "solhost: program host CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  solhost artifact put [store flags] <file>")
	fmt.Fprintln(w, "  solhost artifact get [store flags] --cid <cid> [--out <file>]")
	fmt.Fprintln(w, "  solhost artifact cid <file>")
	fmt.Fprintln(w, "  solhost bundle export [store flags] --out <file> [--program Name=CID ...] <cid> [<cid> ...]")
	fmt.Fprintln(w, "  solhost bundle import [store flags] [--ignore-unknown] <file>")
	fmt.Fprintln(w, "  solhost invoke --target <host:port> --program <id> [--instruction <name>] [--args-hex <hex>] [--data-hex <hex>] [--account <pubkey>[:signer][:writable] ...]")
	fmt.Fprintln(w, "  solhost key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  solhost key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  solhost key list")
	fmt.Fprintln(w, "  solhost key export --name <name> [--role <role>]")
	fmt.Fprintln(w, "  solhost key program-id (--seed-hex <64hex> | --signer <name> [--signer-role <role>] | --key-file <path>)")
	fmt.Fprintln(w, "  solhost manifest sign --program-id <id> --name <n> --cluster <c> --artifact-cid <cid> [--instruction <name> ...] [--authority-key <key> ...] [--upgradeable] [--supersedes <cid>] [--published-at <RFC3339>] (--seed-hex <64hex> | --signer <name> [--signer-role <role>] | --key-file <path>)")
	fmt.Fprintln(w, "  solhost manifest cid <file>")
	fmt.Fprintln(w, "  solhost manifest verify [--mode permissive|strict] <file>")
	fmt.Fprintln(w, "  solhost manifest validate-supersession --new <file> --old <file>")
	fmt.Fprintln(w, "  solhost manifest resolve-head [--mode permissive|strict] <file> [<file> ...]")
	fmt.Fprintln(w, "  solhost policy check [--mode permissive|strict] <file>")
	fmt.Fprintln(w, "  solhost policy authorize --policy <file> --action <action> --key <authority-key> [--key ...]")
	fmt.Fprintln(w, "  solhost programs --target <host:port> [--program <id>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - --seed-hex must be 32 bytes (64 hex chars) ed25519 seed")
	fmt.Fprintln(w, "  - keys are stored under ~/.solhost/keys/<name> (0600 private key files)")
	fmt.Fprintln(w, "  - manifest sign writes canonical manifest bytes to stdout")
	fmt.Fprintln(w, "  - invoke prints the receipt as JSON")
}

type storeFlags struct {
	backend      string
	listBackends bool
}

func (c *storeFlags) add(fs *flag.FlagSet) {
	fs.StringVar(&c.backend, "backend", "localfs", "artifact store backend name")
	fs.BoolVar(&c.listBackends, "list-backends", false, "List supported backends and exit")
	storeregistry.RegisterFlags(fs, storeregistry.UsageCLI)
}

func (c *storeFlags) open() (storage.CAS, func() error, error) {
	return storeregistry.Open(c.backend, storeregistry.UsageCLI)
}

func printBackends(w io.Writer) {
	for _, b := range storeregistry.List(storeregistry.UsageCLI) {
		if b.Description == "" {
			_, _ = fmt.Fprintf(w, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", b.Name, b.Description)
	}
}

func cmdArtifact(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: solhost artifact <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: put, get, cid")
		return 2
	}
	switch args[0] {
	case "put":
		return cmdArtifactPut(args[1:], out, errOut)
	case "get":
		return cmdArtifactGet(args[1:], out, errOut)
	case "cid":
		return cmdArtifactCID(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown artifact subcommand: %s\n", args[0])
		return 2
	}
}

func cmdArtifactPut(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("artifact put", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var store storeFlags
	store.add(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if store.listBackends {
		printBackends(out)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: solhost artifact put [store flags] <file>")
		return 2
	}

	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}

	cas, closeFn, err := store.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	id, err := cas.Put(b)
	if err != nil {
		fmt.Fprintf(errOut, "put: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id.String())
	return 0
}

func cmdArtifactGet(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("artifact get", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var store storeFlags
	store.add(fs)
	var cidStr string
	var outPath string
	fs.StringVar(&cidStr, "cid", "", "CID to fetch")
	fs.StringVar(&outPath, "out", "", "Output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if store.listBackends {
		printBackends(out)
		return 0
	}
	if cidStr == "" {
		fmt.Fprintln(errOut, "missing --cid")
		return 2
	}
	id, err := cid.Decode(cidStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --cid: %v\n", err)
		return 2
	}

	cas, closeFn, err := store.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	b, err := cas.Get(id)
	if err != nil {
		fmt.Fprintf(errOut, "get: %v\n", err)
		return 1
	}
	if outPath == "" {
		_, _ = out.Write(b)
		return 0
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		fmt.Fprintf(errOut, "write %s: %v\n", outPath, err)
		return 1
	}
	return 0
}

func cmdArtifactCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("artifact cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: solhost artifact cid <file>")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}
	_, _ = fmt.Fprintln(out, artifactid.ForBytes(b))
	return 0
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdInvoke(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("invoke", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var target string
	var programID string
	var instructionName string
	var argsHex string
	var dataHex string
	var accounts stringList
	var timeout time.Duration

	fs.StringVar(&target, "target", "127.0.0.1:7787", "host daemon address")
	fs.StringVar(&programID, "program", "", "Program ID (base58)")
	fs.StringVar(&instructionName, "instruction", "", "Instruction name (selector is derived)")
	fs.StringVar(&argsHex, "args-hex", "", "Hex-encoded args appended after the selector (with --instruction)")
	fs.StringVar(&dataHex, "data-hex", "", "Hex-encoded raw instruction data (alternative to --instruction)")
	fs.Var(&accounts, "account", "Account as <pubkey>[:signer][:writable] (repeatable)")
	fs.DurationVar(&timeout, "timeout", 10*time.Second, "RPC timeout")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if programID == "" {
		fmt.Fprintln(errOut, "missing --program")
		return 2
	}
	if instructionName == "" && dataHex == "" {
		fmt.Fprintln(errOut, "missing instruction: use --instruction or --data-hex")
		return 2
	}
	if instructionName != "" && dataHex != "" {
		fmt.Fprintln(errOut, "conflicting flags: --instruction cannot be combined with --data-hex")
		return 2
	}

	req := model.InvokeRequest{
		ProgramID:   programID,
		Instruction: instructionName,
	}
	if argsHex != "" {
		b, err := hex.DecodeString(argsHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --args-hex: %v\n", err)
			return 2
		}
		req.Args = b
	}
	if dataHex != "" {
		b, err := hex.DecodeString(dataHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --data-hex: %v\n", err)
			return 2
		}
		req.Data = b
	}
	for _, a := range accounts {
		ref, err := parseAccountRef(a)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --account: %v\n", err)
			return 2
		}
		req.Accounts = append(req.Accounts, ref)
	}

	client, err := rpc.Dial(target, rpc.DialOptions{Timeout: timeout})
	if err != nil {
		fmt.Fprintf(errOut, "dial %s: %v\n", target, err)
		return 1
	}
	defer client.Close()
	client.Timeout = timeout

	resp, err := client.Invoke(context.Background(), req)
	if err != nil {
		fmt.Fprintf(errOut, "invoke: %v\n", err)
		return 1
	}
	b, err := json.MarshalIndent(resp.Receipt, "", "  ")
	if err != nil {
		fmt.Fprintf(errOut, "encode receipt: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, string(b))
	return 0
}

func parseAccountRef(s string) (model.AccountRef, error) {
	parts := strings.Split(s, ":")
	ref := model.AccountRef{Pubkey: parts[0]}
	if ref.Pubkey == "" {
		return ref, fmt.Errorf("empty pubkey in %q", s)
	}
	for _, p := range parts[1:] {
		switch p {
		case "signer":
			ref.Signer = true
		case "writable":
			ref.Writable = true
		default:
			return ref, fmt.Errorf("unknown account attribute %q (expected signer or writable)", p)
		}
	}
	return ref, nil
}

func cmdPrograms(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("programs", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var target string
	var programID string
	var timeout time.Duration
	fs.StringVar(&target, "target", "127.0.0.1:7787", "host daemon address")
	fs.StringVar(&programID, "program", "", "Optional program ID filter")
	fs.DurationVar(&timeout, "timeout", 10*time.Second, "RPC timeout")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	client, err := rpc.Dial(target, rpc.DialOptions{Timeout: timeout})
	if err != nil {
		fmt.Fprintf(errOut, "dial %s: %v\n", target, err)
		return 1
	}
	defer client.Close()
	client.Timeout = timeout

	resp, err := client.ListPrograms(context.Background(), programID)
	if err != nil {
		fmt.Fprintf(errOut, "list programs: %v\n", err)
		return 1
	}
	for _, p := range resp.Programs {
		if len(p.Instructions) == 0 {
			_, _ = fmt.Fprintf(out, "%s\n", p.ProgramID)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\n", p.ProgramID, strings.Join(p.Instructions, ","))
	}
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "export":
		return cmdKeyExport(args[1:], out, errOut)
	case "program-id":
		return cmdKeyProgramID(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "solhost key: minimal local key management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  solhost key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  solhost key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  solhost key list")
	fmt.Fprintln(w, "  solhost key export --name <name> [--role <role>]")
	fmt.Fprintln(w, "  solhost key program-id (--seed-hex <64hex> | --signer <name> [--signer-role <role>] | --key-file <path>)")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var seedHex string
	var force bool

	fs.StringVar(&name, "name", "", "Key name (directory under ~/.solhost/keys)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible demos)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}

	var seed []byte
	if seedHex != "" {
		var derr error
		seed, derr = keys.ParseSeedHex(seedHex)
		if derr != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", derr)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	authorityKey, rootPath, err := ks.InitializeRootKey(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created root key: %s\n", authorityKey)
	fmt.Fprintf(out, "Stored at: %s\n", rootPath)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from string
	var role string
	var force bool

	fs.StringVar(&from, "from", "", "Root key name")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. deployer, authority)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" {
		fmt.Fprintln(errOut, "missing --from")
		return 2
	}
	if role == "" {
		fmt.Fprintln(errOut, "missing --role")
		return 2
	}
	if err := keys.CheckKeyName(from); err != nil {
		fmt.Fprintf(errOut, "invalid --from: %v\n", err)
		return 2
	}
	if err := keys.CheckRole(role); err != nil {
		fmt.Fprintf(errOut, "invalid --role: %v\n", err)
		return 2
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	authorityKey, rolePath, err := ks.DeriveKeyFromRole(from, role, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive role key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created role key: %s\n", authorityKey)
	fmt.Fprintf(out, "Stored at: %s\n", rolePath)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\n", e.Name)
		for _, r := range e.Roles {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var role string

	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&role, "role", "", "Optional role (if set, exports derived role key)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	if role != "" {
		if err := keys.CheckRole(role); err != nil {
			fmt.Fprintf(errOut, "invalid --role: %v\n", err)
			return 2
		}
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	authorityKey, err := ks.ExportKey(name, role)
	if err != nil {
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, authorityKey)
	return 0
}

func cmdKeyProgramID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key program-id", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var seedHex string
	var signerName string
	var signerRole string
	var keyFile string

	fs.StringVar(&seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars")
	fs.StringVar(&signerName, "signer", "", "Use a stored key by name")
	fs.StringVar(&signerRole, "signer-role", "", "When using --signer, optionally use a derived role key")
	fs.StringVar(&keyFile, "key-file", "", "Path to a seed file (hex)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	seed, code := loadSignerSeed(seedHex, signerName, signerRole, keyFile, errOut)
	if code != 0 {
		return code
	}
	id, err := keys.ProgramIDFromSeed(seed)
	if err != nil {
		fmt.Fprintf(errOut, "program id: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id.String())
	return 0
}

// loadSignerSeed resolves the shared --seed-hex/--signer/--key-file signer
// flags. A non-zero return code means the caller should exit with it.
func loadSignerSeed(seedHex, signerName, signerRole, keyFile string, errOut io.Writer) ([]byte, int) {
	if seedHex == "" && signerName == "" && keyFile == "" {
		fmt.Fprintln(errOut, "missing signer: use --seed-hex, --signer, or --key-file")
		return nil, 2
	}
	if seedHex != "" && (signerName != "" || keyFile != "") {
		fmt.Fprintln(errOut, "conflicting signer flags: --seed-hex cannot be combined with --signer or --key-file")
		return nil, 2
	}
	if signerName != "" && keyFile != "" {
		fmt.Fprintln(errOut, "conflicting signer flags: --signer cannot be combined with --key-file")
		return nil, 2
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return nil, 1
	}
	seed, err := ks.LoadSeed(seedHex, signerName, signerRole, keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "invalid signer: %v\n", err)
		return nil, 2
	}
	return seed, 0
}
