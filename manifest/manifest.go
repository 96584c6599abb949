// Package manifest implements the canonical program deployment manifest format.
//
// A manifest is an armored text document binding a program identity to its
// artifact, cluster, instruction surface, and upgrade authorities. Manifests
// are canonical by construction: byte-identical inputs produce byte-identical
// documents, so CIDs and signatures are stable.
package manifest

import (
	"crypto/ed25519"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"fordefi.com/solhost/keys"
)

const (
	Preamble  = "-----BEGIN SOLHOST MANIFEST-----"
	Postamble = "-----END SOLHOST MANIFEST-----"

	// SpecID identifies this manifest format revision.
	SpecID = "solhost-manifest-1"
)

// Manifest describes one program deployment.
type Manifest struct {
	// HostID identifies the publishing host. Empty means the reference host.
	HostID string
	// PublishedAt is informational only; zero means omit.
	PublishedAt time.Time
	// Supersedes optionally names the CID of a prior manifest this one replaces.
	Supersedes string

	ProgramID   string
	Name        string
	Cluster     string
	ArtifactCID string
	// Instructions lists the instruction names the program exposes.
	Instructions []string

	AuthorityKeys []string
	Upgradeable   bool
}

// SignOptions controls manifest signing.
//
// If PrivateKey is set, the output includes a populated CRYPTO section with
// Signature computed over the manifest bytes excluding the Signature and
// Cosign-Signature lines. CosignPrivateKey optionally adds a dilithium3
// cosignature over sha3-256 of the same scope. Cosign fields require a
// SignerKey; they are ignored without one.
type SignOptions struct {
	SignerKey  string
	PrivateKey ed25519.PrivateKey

	CosignKey        string
	CosignPrivateKey *mode3.PrivateKey
}

// Render produces a canonical manifest document.
// Sections are always present and ordering is deterministic.
func Render(m Manifest, opts SignOptions) []byte {
	hostID := m.HostID
	if hostID == "" {
		hostID = "solhost-reference"
	}

	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")

	// META
	sb.WriteString("META\n")
	metaLines := []string{
		"Host-ID: " + hostID,
		"Spec: " + SpecID,
		"Version: 1",
	}
	if !m.PublishedAt.IsZero() {
		metaLines = append(metaLines, "Published-At: "+m.PublishedAt.UTC().Format(time.RFC3339))
	}
	if m.Supersedes != "" {
		metaLines = append(metaLines, "Supersedes-Manifest-CID: "+m.Supersedes)
	}
	sort.Strings(metaLines)
	for _, l := range metaLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// PROGRAM
	sb.WriteString("PROGRAM\n")
	programLines := []string{
		"Artifact-CID: " + m.ArtifactCID,
		"Cluster: " + m.Cluster,
		"Name: " + m.Name,
		"Program-ID: " + m.ProgramID,
	}
	for _, ins := range m.Instructions {
		programLines = append(programLines, "Instruction: "+ins)
	}
	sort.Strings(programLines)
	for _, l := range programLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// AUTHORITY
	sb.WriteString("AUTHORITY\n")
	authorityLines := make([]string, 0, len(m.AuthorityKeys)+1)
	for _, k := range m.AuthorityKeys {
		authorityLines = append(authorityLines, "Authority-Key: "+k)
	}
	if m.Upgradeable {
		authorityLines = append(authorityLines, "Upgradeable: true")
	} else {
		authorityLines = append(authorityLines, "Upgradeable: false")
	}
	sort.Strings(authorityLines)
	for _, l := range authorityLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// CRYPTO
	sb.WriteString("CRYPTO\n")
	cryptoLines := []string{}
	if opts.SignerKey != "" {
		cryptoLines = append(cryptoLines,
			"Hash-Alg: sha256",
			"Signer-Key: "+opts.SignerKey,
			"Signature-Alg: ed25519",
			"Signature: 0",
		)
	}
	// A cosignature only ever accompanies a primary signature; a CosignKey
	// without a SignerKey is ignored rather than emitting a dangling
	// Cosign-Signature placeholder.
	if opts.CosignKey != "" && opts.SignerKey != "" {
		cryptoLines = append(cryptoLines,
			"Cosign-Alg: dilithium3",
			"Cosign-Hash-Alg: sha3-256",
			"Cosign-Key: "+opts.CosignKey,
			"Cosign-Signature: 0",
		)
	}
	sort.Strings(cryptoLines)
	for _, l := range cryptoLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(Postamble)
	sb.WriteString("\n")
	out := []byte(sb.String())

	// Placeholder substitution is anchored to whole lines: "Cosign-Signature: 0"
	// sorts before "Signature: 0" and contains it as a substring, so a bare
	// substring replace would sign the wrong line.
	if len(opts.PrivateKey) > 0 && opts.SignerKey != "" {
		scope, err := signatureScope(out)
		if err == nil {
			sig := keys.SignEd25519SHA256(scope, opts.PrivateKey)
			out = []byte(strings.Replace(string(out), "\nSignature: 0\n", "\nSignature: "+sig+"\n", 1))
		}
	}
	if opts.CosignPrivateKey != nil && opts.CosignKey != "" && opts.SignerKey != "" {
		scope, err := signatureScope(out)
		if err == nil {
			sig, serr := keys.SignDilithium3(scope, opts.CosignPrivateKey)
			if serr == nil {
				out = []byte(strings.Replace(string(out), "\nCosign-Signature: 0\n", "\nCosign-Signature: "+sig+"\n", 1))
			}
		}
	}

	return out
}

// RenderSigned is like Render but fails explicitly when signing cannot be performed.
func RenderSigned(m Manifest, opts SignOptions) ([]byte, error) {
	if opts.SignerKey == "" || len(opts.PrivateKey) == 0 {
		return nil, errors.New("manifest: signer key and private key are required")
	}
	out := Render(m, opts)
	if strings.Contains(string(out), "Signature: 0\n") {
		return nil, errors.New("manifest: signing failed")
	}
	return out, nil
}

// signatureScope returns the manifest bytes with the Signature and
// Cosign-Signature lines removed. Both ed25519 and dilithium3 signatures
// are computed over this scope.
func signatureScope(manifestBytes []byte) ([]byte, error) {
	lines := strings.Split(string(manifestBytes), "\n")
	var out []string
	removedSig := false
	removedCosig := false
	for _, l := range lines {
		if strings.HasPrefix(l, "Signature: ") {
			if removedSig {
				return nil, errors.New("multiple Signature lines")
			}
			removedSig = true
			continue
		}
		if strings.HasPrefix(l, "Cosign-Signature: ") {
			if removedCosig {
				return nil, errors.New("multiple Cosign-Signature lines")
			}
			removedCosig = true
			continue
		}
		out = append(out, l)
	}
	if !removedSig {
		return nil, errors.New("missing Signature line")
	}
	return []byte(strings.Join(out, "\n")), nil
}
