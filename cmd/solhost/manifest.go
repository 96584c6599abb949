package main

import (
	"crypto/ed25519"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"fordefi.com/solhost/keys"
	"fordefi.com/solhost/manifest"
	"fordefi.com/solhost/policy"
	"fordefi.com/solhost/storage/bundle"
)

func parseMode(s string, errOut io.Writer) (manifest.Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "permissive":
		return manifest.Permissive, true
	case "strict":
		return manifest.Strict, true
	default:
		fmt.Fprintln(errOut, "invalid --mode (expected permissive or strict)")
		return manifest.Permissive, false
	}
}

func cmdManifest(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: solhost manifest <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: sign, cid, verify, validate-supersession, resolve-head")
		return 2
	}
	switch args[0] {
	case "sign":
		return cmdManifestSign(args[1:], out, errOut)
	case "cid":
		return cmdManifestCID(args[1:], out, errOut)
	case "verify":
		return cmdManifestVerify(args[1:], out, errOut)
	case "validate-supersession":
		return cmdManifestValidateSupersession(args[1:], out, errOut)
	case "resolve-head":
		return cmdManifestResolveHead(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown manifest subcommand: %s\n", args[0])
		return 2
	}
}

func cmdManifestSign(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("manifest sign", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var programID string
	var name string
	var cluster string
	var artifactCID string
	var hostID string
	var publishedAt string
	var supersedes string
	var upgradeable bool
	var instructions stringList
	var authorityKeys stringList
	var seedHex string
	var signerName string
	var signerRole string
	var keyFile string
	var printSignerKey bool

	fs.StringVar(&programID, "program-id", "", "Program ID (base58)")
	fs.StringVar(&name, "name", "", "Program name")
	fs.StringVar(&cluster, "cluster", "", "Cluster (e.g. mainnet, devnet)")
	fs.StringVar(&artifactCID, "artifact-cid", "", "CID of the program artifact")
	fs.StringVar(&hostID, "host-id", "", "Host-ID recorded in META (defaults to the reference host)")
	fs.StringVar(&publishedAt, "published-at", "", "Optional RFC3339 timestamp for META Published-At (omit for deterministic output)")
	fs.StringVar(&supersedes, "supersedes", "", "Optional CID of a prior manifest this one supersedes")
	fs.BoolVar(&upgradeable, "upgradeable", false, "Mark the deployment upgradeable")
	fs.Var(&instructions, "instruction", "Instruction name (repeatable)")
	fs.Var(&authorityKeys, "authority-key", "Authority key (repeatable)")
	fs.StringVar(&seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars")
	fs.StringVar(&signerName, "signer", "", "Use a stored key by name (from 'solhost key init')")
	fs.StringVar(&signerRole, "signer-role", "", "When using --signer, optionally use a derived role key")
	fs.StringVar(&keyFile, "key-file", "", "Path to a seed file (hex) created by 'solhost key init/derive'")
	fs.BoolVar(&printSignerKey, "print-signer-key", true, "Print Signer-Key to stderr")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if programID == "" {
		fmt.Fprintln(errOut, "missing --program-id")
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if cluster == "" {
		fmt.Fprintln(errOut, "missing --cluster")
		return 2
	}
	if artifactCID == "" {
		fmt.Fprintln(errOut, "missing --artifact-cid")
		return 2
	}

	var published time.Time
	if publishedAt != "" {
		t, perr := time.Parse(time.RFC3339, publishedAt)
		if perr != nil {
			fmt.Fprintf(errOut, "invalid --published-at (expected RFC3339): %v\n", perr)
			return 2
		}
		published = t
	}

	seed, code := loadSignerSeed(seedHex, signerName, signerRole, keyFile, errOut)
	if code != 0 {
		return code
	}
	priv := ed25519.NewKeyFromSeed(seed)
	signerKey := keys.AuthorityKeyFromSeed(seed)
	if printSignerKey {
		fmt.Fprintf(errOut, "Signer-Key: %s\n", signerKey)
	}

	m := manifest.Manifest{
		HostID:        hostID,
		PublishedAt:   published,
		Supersedes:    supersedes,
		ProgramID:     programID,
		Name:          name,
		Cluster:       cluster,
		ArtifactCID:   artifactCID,
		Instructions:  instructions,
		AuthorityKeys: authorityKeys,
		Upgradeable:   upgradeable,
	}
	b, err := manifest.RenderSigned(m, manifest.SignOptions{SignerKey: signerKey, PrivateKey: priv})
	if err != nil {
		fmt.Fprintf(errOut, "sign: %v\n", err)
		return 1
	}
	ok, err := manifest.VerifySignature(b)
	if err != nil {
		fmt.Fprintf(errOut, "verify: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(errOut, "verify: signature did not round-trip")
		return 1
	}
	mCID, err := manifest.CID(b)
	if err != nil {
		fmt.Fprintf(errOut, "cid: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "Manifest-CID: %s\n", mCID)
	_, _ = out.Write(b)
	return 0
}

func cmdManifestCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("manifest cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: solhost manifest cid <file>")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read manifest: %v\n", err)
		return 1
	}
	mCID, err := manifest.CID(b)
	if err != nil {
		fmt.Fprintf(errOut, "invalid manifest: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, mCID)
	return 0
}

func cmdManifestVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("manifest verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var mode string
	fs.StringVar(&mode, "mode", "permissive", "Verification mode: permissive or strict")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: solhost manifest verify [--mode permissive|strict] <file>")
		return 2
	}
	m, ok := parseMode(mode, errOut)
	if !ok {
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read manifest: %v\n", err)
		return 1
	}
	if err := manifest.Verify(b, m); err != nil {
		fmt.Fprintf(errOut, "invalid: %v\n", err)
		return 1
	}
	signed, err := manifest.VerifySignature(b)
	if err != nil {
		fmt.Fprintf(errOut, "invalid signature: %v\n", err)
		return 1
	}
	if signed {
		_, _ = fmt.Fprintln(out, "OK (signed)")
	} else {
		_, _ = fmt.Fprintln(out, "OK (unsigned)")
	}
	return 0
}

func cmdManifestValidateSupersession(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("manifest validate-supersession", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var newPath string
	var oldPath string
	fs.StringVar(&newPath, "new", "", "New manifest file")
	fs.StringVar(&oldPath, "old", "", "Old manifest file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if newPath == "" || oldPath == "" {
		fmt.Fprintln(errOut, "usage: solhost manifest validate-supersession --new <file> --old <file>")
		return 2
	}
	newBytes, err := os.ReadFile(newPath)
	if err != nil {
		fmt.Fprintf(errOut, "read --new: %v\n", err)
		return 1
	}
	oldBytes, err := os.ReadFile(oldPath)
	if err != nil {
		fmt.Fprintf(errOut, "read --old: %v\n", err)
		return 1
	}
	if err := manifest.ValidateSupersession(newBytes, oldBytes); err != nil {
		fmt.Fprintf(errOut, "invalid: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, "OK")
	return 0
}

func cmdManifestResolveHead(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("manifest resolve-head", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var mode string
	fs.StringVar(&mode, "mode", "permissive", "Resolution mode: permissive or strict")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: solhost manifest resolve-head [--mode permissive|strict] <file> [<file> ...]")
		return 2
	}
	m, ok := parseMode(mode, errOut)
	if !ok {
		return 2
	}

	manifests := make([][]byte, 0, fs.NArg())
	for _, p := range fs.Args() {
		b, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(errOut, "read manifest %s: %v\n", p, err)
			return 1
		}
		manifests = append(manifests, b)
	}

	res, err := manifest.ResolveHead(manifests, m)
	if err != nil {
		fmt.Fprintf(errOut, "resolve-head: %v\n", err)
		return 1
	}
	if res.HeadCID == "" {
		fmt.Fprintln(errOut, "head is ambiguous:")
		for _, h := range res.Heads {
			fmt.Fprintf(errOut, "  candidate: %s\n", h)
		}
		for _, f := range res.Forks {
			fmt.Fprintf(errOut, "  fork on %s: %s\n", f.OnCID, strings.Join(f.CandidateCIDs, ", "))
		}
		return 1
	}
	_, _ = fmt.Fprintf(out, "Head: %s\n", res.HeadCID)
	for _, c := range res.Chain {
		_, _ = fmt.Fprintf(out, "  %s\n", c)
	}
	return 0
}

func cmdPolicy(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: solhost policy <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: check, authorize")
		return 2
	}
	switch args[0] {
	case "check":
		return cmdPolicyCheck(args[1:], out, errOut)
	case "authorize":
		return cmdPolicyAuthorize(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown policy subcommand: %s\n", args[0])
		return 2
	}
}

func cmdPolicyCheck(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("policy check", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var mode string
	fs.StringVar(&mode, "mode", "permissive", "Parse mode: permissive or strict")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: solhost policy check [--mode permissive|strict] <file>")
		return 2
	}
	m, ok := parseMode(mode, errOut)
	if !ok {
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read policy: %v\n", err)
		return 1
	}
	p, err := policy.ParseWithMode(b, m)
	if err != nil {
		fmt.Fprintf(errOut, "invalid: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "OK (%d authorities, %d rules)\n", len(p.Authorities), len(p.Rules))
	return 0
}

func cmdPolicyAuthorize(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("policy authorize", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var policyPath string
	var action string
	var signerKeys stringList

	fs.StringVar(&policyPath, "policy", "", "Authority policy file")
	fs.StringVar(&action, "action", "", "Action to authorize (e.g. deploy, upgrade)")
	fs.Var(&signerKeys, "key", "Signer authority key (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if policyPath == "" {
		fmt.Fprintln(errOut, "missing --policy")
		return 2
	}
	if action == "" {
		fmt.Fprintln(errOut, "missing --action")
		return 2
	}
	if len(signerKeys) == 0 {
		fmt.Fprintln(errOut, "missing --key")
		return 2
	}

	b, err := os.ReadFile(policyPath)
	if err != nil {
		fmt.Fprintf(errOut, "read policy: %v\n", err)
		return 1
	}
	p, err := policy.Parse(b)
	if err != nil {
		fmt.Fprintf(errOut, "invalid policy: %v\n", err)
		return 1
	}
	if err := p.Authorize(action, signerKeys...); err != nil {
		fmt.Fprintf(errOut, "denied: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, "OK")
	return 0
}

func cmdBundle(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: solhost bundle <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: export, import")
		return 2
	}
	switch args[0] {
	case "export":
		return cmdBundleExport(args[1:], out, errOut)
	case "import":
		return cmdBundleImport(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown bundle subcommand: %s\n", args[0])
		return 2
	}
}

func cmdBundleExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var store storeFlags
	store.add(fs)
	var outPath string
	var programs stringList
	var includeIndex bool
	fs.StringVar(&outPath, "out", "", "Output bundle file")
	fs.Var(&programs, "program", "Program metadata as Name=CID (repeatable)")
	fs.BoolVar(&includeIndex, "index", true, "Include index.json in the bundle")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if store.listBackends {
		printBackends(out)
		return 0
	}
	if outPath == "" {
		fmt.Fprintln(errOut, "missing --out")
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: solhost bundle export [store flags] --out <file> [--program Name=CID ...] <cid> [<cid> ...]")
		return 2
	}

	ids := make([]cid.Cid, 0, fs.NArg())
	for _, s := range fs.Args() {
		id, err := cid.Decode(s)
		if err != nil {
			fmt.Fprintf(errOut, "invalid cid %q: %v\n", s, err)
			return 2
		}
		ids = append(ids, id)
	}

	programMap := make(map[string]cid.Cid, len(programs))
	for _, p := range programs {
		name, val, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			fmt.Fprintf(errOut, "invalid --program %q (expected Name=CID)\n", p)
			return 2
		}
		id, err := cid.Decode(val)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --program %q: %v\n", p, err)
			return 2
		}
		programMap[name] = id
	}

	cas, closeFn, err := store.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(errOut, "create %s: %v\n", outPath, err)
		return 1
	}
	if err := bundle.Export(f, cas, ids, bundle.ExportOptions{Programs: programMap, IncludeIndex: includeIndex}); err != nil {
		_ = f.Close()
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(errOut, "close %s: %v\n", outPath, err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "wrote %d blocks to %s\n", len(ids), outPath)
	return 0
}

func cmdBundleImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle import", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var store storeFlags
	store.add(fs)
	var ignoreUnknown bool
	fs.BoolVar(&ignoreUnknown, "ignore-unknown", false, "Ignore unknown bundle entries instead of failing")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if store.listBackends {
		printBackends(out)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: solhost bundle import [store flags] [--ignore-unknown] <file>")
		return 2
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open %s: %v\n", fs.Arg(0), err)
		return 1
	}
	defer f.Close()

	cas, closeFn, err := store.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	if err := bundle.ImportWithOptions(f, cas, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown}); err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, "OK")
	return 0
}
