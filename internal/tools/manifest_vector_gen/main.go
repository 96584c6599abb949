package main

import (
	"crypto/ed25519"
	"fmt"

	"fordefi.com/solhost/keys"
	"fordefi.com/solhost/manifest"
	"fordefi.com/solhost/programs/fordefi"
)

func mustSeed(seedByte byte) []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	return seed
}

func main() {
	seed := mustSeed(0xA1)
	priv := ed25519.NewKeyFromSeed(seed)
	signerKey := keys.AuthorityKeyFromSeed(seed)

	m := manifest.Manifest{
		ProgramID:    fordefi.ProgramIDMainnet,
		Name:         "fordefi",
		Cluster:      "mainnet",
		ArtifactCID:  "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy",
		Instructions: []string{"initialize"},
	}

	b, err := manifest.RenderSigned(m, manifest.SignOptions{SignerKey: signerKey, PrivateKey: priv})
	if err != nil {
		panic(err)
	}
	ok, err := manifest.VerifySignature(b)
	if err != nil {
		panic(err)
	}
	if !ok {
		panic("vector manifest did not verify")
	}
	cid, err := manifest.CID(b)
	if err != nil {
		panic(err)
	}

	fmt.Printf("CID=%s\n", cid)
	fmt.Printf("---BEGIN---\n%s\n---END---\n", string(b))
}
