package storage

import "github.com/ipfs/go-cid"

// CAS is a minimal content-addressable store for deployment artifacts
// (program bytecode and manifests).
//
// Contract:
// - Put MUST be idempotent.
// - Stored artifacts MUST be immutable.
// - CIDs MUST be derived from the bytes written (callers supply canonical bytes).
// - Get MUST return ErrNotFound when the CID is absent.
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// NamedCAS associates a CAS with a stable backend name.
//
// Used for multi-backend orchestration where callers need per-backend
// metadata (e.g., replication reporting).
type NamedCAS struct {
	Name string
	CAS  CAS
}
