package manifest

import (
	"fmt"

	"fordefi.com/solhost/artifactid"
)

// Document is a first-class manifest evidence object.
//
// Bytes are canonical manifest bytes. CID is derived from Bytes.
//
// Manifests are intentionally treated as documents (not ephemeral output) so
// they can be archived, inspected, and re-verified.
type Document struct {
	Bytes []byte
	CID   string
}

// NewDocumentFromBytes canonicalizes manifest bytes and computes the manifest CID.
func NewDocumentFromBytes(manifestBytes []byte) (*Document, error) {
	canon, err := Canonicalize(manifestBytes)
	if err != nil {
		return nil, err
	}
	return &Document{Bytes: canon, CID: artifactid.ForBytes(canon)}, nil
}

// CID returns an IPFS-compatible CIDv1 (raw + sha2-256) for manifest bytes.
//
// Manifests must be canonical before CID derivation. If input is not
// canonical, this function fails.
func CID(manifestBytes []byte) (string, error) {
	canon, err := Canonicalize(manifestBytes)
	if err != nil {
		return "", fmt.Errorf("canonical manifest required: %w", err)
	}
	return artifactid.ForBytes(canon), nil
}

// RenderWithCID renders a manifest and returns its CID.
func RenderWithCID(m Manifest, opts SignOptions) ([]byte, string, error) {
	b := Render(m, opts)
	id, err := CID(b)
	if err != nil {
		return nil, "", err
	}
	return b, id, nil
}

// RenderSignedWithCID renders a manifest with a required ed25519 signature
// and returns its CID.
func RenderSignedWithCID(m Manifest, opts SignOptions) ([]byte, string, error) {
	b, err := RenderSigned(m, opts)
	if err != nil {
		return nil, "", err
	}
	id, err := CID(b)
	if err != nil {
		return nil, "", err
	}
	return b, id, nil
}
