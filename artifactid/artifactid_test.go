package artifactid

import (
	"testing"

	"github.com/ipfs/go-cid"
)

func TestForBytesDeterministic(t *testing.T) {
	a := ForBytes([]byte("bytecode"))
	b := ForBytes([]byte("bytecode"))
	if a == "" || a != b {
		t.Fatalf("ForBytes not deterministic: %q vs %q", a, b)
	}
	if c := ForBytes([]byte("other")); c == a {
		t.Fatalf("distinct bytes produced equal IDs")
	}
}

func TestCIDForBytesParsesBack(t *testing.T) {
	id, err := CIDForBytes([]byte("bytecode"))
	if err != nil {
		t.Fatalf("CIDForBytes: %v", err)
	}
	if !id.Defined() {
		t.Fatalf("undefined CID")
	}
	back, err := cid.Decode(id.String())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back != id {
		t.Fatalf("round trip mismatch")
	}
	if id.String() != ForBytes([]byte("bytecode")) {
		t.Fatalf("string forms disagree")
	}
}
