// Package artifactid derives content identifiers for deployment artifacts
// (program bytecode and manifests).
//
// Artifact IDs are CIDv1 strings using the "raw" multicodec and a sha2-256
// multihash, so any IPFS-compatible tool can address the same bytes.
package artifactid

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ForBytes returns the artifact ID string for data.
func ForBytes(data []byte) string {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1
		// length this should be unreachable.
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

// CIDForBytes returns the artifact ID as a cid.Cid.
func CIDForBytes(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
