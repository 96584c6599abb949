package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// SignEd25519SHA256 returns a base64 signature over sha256(message).
// This is the primary manifest signature.
func SignEd25519SHA256(message []byte, privateKey ed25519.PrivateKey) string {
	digest := sha256.Sum256(message)
	return base64.StdEncoding.EncodeToString(ed25519.Sign(privateKey, digest[:]))
}

// SignDilithium3 returns a base64 dilithium3 signature over sha3-256(message),
// the digest manifest cosignatures are computed over.
func SignDilithium3(message []byte, privateKey *mode3.PrivateKey) (string, error) {
	if privateKey == nil {
		return "", errors.New("missing cosign private key")
	}
	digest := sha3.Sum256(message)
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(privateKey, digest[:], sig)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// GenerateDilithium3Keypair returns a new dilithium3 cosigning keypair.
func GenerateDilithium3Keypair(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}
