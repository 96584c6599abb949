package manifest

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// Mode selects how aggressively verification rejects ambiguity.
//
// Strict mode prefers explicit failure over silent acceptance.
// Permissive mode accepts unsigned manifests while still rejecting
// malformed or incorrectly signed ones.
type Mode int

const (
	Permissive Mode = iota
	Strict
)

// Verify checks a manifest document under the given mode.
//
// In Permissive mode an unsigned manifest passes; a signed one must verify.
// In Strict mode the manifest must be signed and the signature must verify.
// Both modes require canonical bytes and the current SpecID.
func Verify(manifestBytes []byte, mode Mode) error {
	canon, err := Canonicalize(manifestBytes)
	if err != nil {
		return fmt.Errorf("canonical manifest required: %w", err)
	}

	spec, err := requiredFieldFromSection(canon, "META", "Spec")
	if err != nil {
		return err
	}
	if spec != SpecID {
		return fmt.Errorf("unsupported manifest spec %q", spec)
	}

	signed, err := VerifySignature(canon)
	if err != nil {
		return err
	}
	if mode == Strict && !signed {
		return errors.New("strict mode requires a signed manifest")
	}
	return nil
}

// VerifySignature verifies the manifest CRYPTO signature, if present.
//
// Returns (true, nil) if the document is signed and all signatures verify.
// Returns (false, nil) if the document is not signed (empty CRYPTO section).
// Returns (false, err) for malformed, non-canonical, or invalid signatures.
//
// Verification requires canonical manifest bytes; non-canonical inputs are rejected.
func VerifySignature(manifestBytes []byte) (bool, error) {
	canon, err := Canonicalize(manifestBytes)
	if err != nil {
		return false, fmt.Errorf("canonical manifest required: %w", err)
	}

	cryptoLines, err := sectionLines(canon, "CRYPTO")
	if err != nil {
		return false, err
	}
	if len(cryptoLines) == 0 {
		return false, nil
	}

	sigAlg, hasAlg, err := singleFieldFromSection(canon, "CRYPTO", "Signature-Alg")
	if err != nil {
		return false, err
	}
	hashAlg, hasHash, err := singleFieldFromSection(canon, "CRYPTO", "Hash-Alg")
	if err != nil {
		return false, err
	}
	signerKey, hasKey, err := singleFieldFromSection(canon, "CRYPTO", "Signer-Key")
	if err != nil {
		return false, err
	}
	sigB64, hasSig, err := singleFieldFromSection(canon, "CRYPTO", "Signature")
	if err != nil {
		return false, err
	}

	// Partially populated CRYPTO is invalid.
	if !(hasKey && hasAlg && hasHash && hasSig) {
		return false, errors.New("CRYPTO: incomplete signature fields")
	}
	if sigAlg != "ed25519" {
		return false, fmt.Errorf("CRYPTO: unsupported Signature-Alg %q", sigAlg)
	}
	if hashAlg != "sha256" {
		return false, fmt.Errorf("CRYPTO: unsupported Hash-Alg %q", hashAlg)
	}

	pub, err := parseEd25519PublicKey(signerKey)
	if err != nil {
		return false, err
	}

	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false, fmt.Errorf("CRYPTO: invalid Signature encoding: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return false, errors.New("CRYPTO: invalid Signature length")
	}

	scope, err := signatureScope(canon)
	if err != nil {
		return false, err
	}
	digest := sha256.Sum256(scope)
	if !ed25519.Verify(pub, digest[:], sig) {
		return false, errors.New("CRYPTO: signature did not verify")
	}

	return verifyCosign(canon, scope)
}

// verifyCosign checks the optional dilithium3 cosignature.
// Returns (true, nil) when absent or valid.
func verifyCosign(canon, scope []byte) (bool, error) {
	cosignAlg, hasAlg, err := singleFieldFromSection(canon, "CRYPTO", "Cosign-Alg")
	if err != nil {
		return false, err
	}
	cosignHash, hasHash, err := singleFieldFromSection(canon, "CRYPTO", "Cosign-Hash-Alg")
	if err != nil {
		return false, err
	}
	cosignKey, hasKey, err := singleFieldFromSection(canon, "CRYPTO", "Cosign-Key")
	if err != nil {
		return false, err
	}
	cosigB64, hasSig, err := singleFieldFromSection(canon, "CRYPTO", "Cosign-Signature")
	if err != nil {
		return false, err
	}

	if !hasAlg && !hasHash && !hasKey && !hasSig {
		return true, nil
	}
	if !(hasAlg && hasHash && hasKey && hasSig) {
		return false, errors.New("CRYPTO: incomplete cosignature fields")
	}
	if cosignAlg != "dilithium3" {
		return false, fmt.Errorf("CRYPTO: unsupported Cosign-Alg %q", cosignAlg)
	}
	if cosignHash != "sha3-256" {
		return false, fmt.Errorf("CRYPTO: unsupported Cosign-Hash-Alg %q", cosignHash)
	}

	pk, err := parseDilithium3PublicKey(cosignKey)
	if err != nil {
		return false, err
	}
	sig, err := base64.StdEncoding.DecodeString(cosigB64)
	if err != nil {
		return false, fmt.Errorf("CRYPTO: invalid Cosign-Signature encoding: %w", err)
	}
	if len(sig) != mode3.SignatureSize {
		return false, errors.New("CRYPTO: invalid Cosign-Signature length")
	}

	digest := sha3.Sum256(scope)
	if !mode3.Verify(pk, digest[:], sig) {
		return false, errors.New("CRYPTO: cosignature did not verify")
	}
	return true, nil
}

func parseEd25519PublicKey(s string) (ed25519.PublicKey, error) {
	const prefix = "ed25519:"
	if !strings.HasPrefix(s, prefix) {
		return nil, fmt.Errorf("CRYPTO: unsupported Signer-Key %q", s)
	}
	b64 := strings.TrimPrefix(s, prefix)
	b, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("CRYPTO: invalid Signer-Key encoding: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, errors.New("CRYPTO: invalid Signer-Key length")
	}
	return ed25519.PublicKey(b), nil
}

func parseDilithium3PublicKey(s string) (*mode3.PublicKey, error) {
	const prefix = "dilithium3:"
	if !strings.HasPrefix(s, prefix) {
		return nil, fmt.Errorf("CRYPTO: unsupported Cosign-Key %q", s)
	}
	b64 := strings.TrimPrefix(s, prefix)
	b, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("CRYPTO: invalid Cosign-Key encoding: %w", err)
	}
	if len(b) != mode3.PublicKeySize {
		return nil, errors.New("CRYPTO: invalid Cosign-Key length")
	}
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("CRYPTO: invalid Cosign-Key: %w", err)
	}
	return &pk, nil
}
