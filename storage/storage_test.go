package storage_test

import (
	"testing"

	"fordefi.com/solhost/artifactid"
	"fordefi.com/solhost/storage"
	"fordefi.com/solhost/storage/memcas"
	"fordefi.com/solhost/storage/testkit"
)

func TestMemoryCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		t.Helper()
		return memcas.New()
	})
}

func TestMultiCAS_OrderedFallback(t *testing.T) {
	first := memcas.New()
	second := memcas.New()
	multi := storage.MultiCAS{Adapters: []storage.CAS{first, second}}

	payload := []byte("only in the second store")
	id, err := second.Put(payload)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := multi.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("Get bytes mismatch")
	}
	if !multi.Has(id) {
		t.Fatalf("Has returned false")
	}

	// Writes land only in the first adapter.
	wid, err := multi.Put([]byte("fresh write"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !first.Has(wid) {
		t.Fatalf("first adapter missing the write")
	}
	if second.Has(wid) {
		t.Fatalf("second adapter must not receive the write")
	}
}

func TestReplicatingCAS_WritesAll(t *testing.T) {
	a := memcas.New()
	b := memcas.New()
	rep := storage.ReplicatingCAS{Backends: []storage.NamedCAS{
		{Name: "mainnet", CAS: a},
		{Name: "devnet", CAS: b},
	}}

	payload := []byte("replicated bytecode")
	id, perBackend, err := rep.PutAll(payload)
	if err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}
	wantID, err := artifactid.CIDForBytes(payload)
	if err != nil {
		t.Fatalf("CIDForBytes failed: %v", err)
	}
	if id != wantID {
		t.Fatalf("canonical CID mismatch")
	}
	if len(perBackend) != 2 {
		t.Fatalf("per-backend map: got %d entries", len(perBackend))
	}
	if !a.Has(id) || !b.Has(id) {
		t.Fatalf("replication incomplete")
	}
}

func TestReplicatingCAS_NoBackends(t *testing.T) {
	rep := storage.ReplicatingCAS{}
	if _, err := rep.Put([]byte("x")); err == nil {
		t.Fatalf("Put with no backends must fail")
	}
}
