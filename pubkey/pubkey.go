// Package pubkey implements the fixed-length program identity used across solhost.
//
// A program identity is an opaque 32-byte public identifier assigned at
// deployment time and rendered as base58 text everywhere a human sees it.
package pubkey

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Size is the byte length of a program identity.
const Size = 32

var (
	ErrInvalidLength = errors.New("pubkey: invalid length")
	ErrInvalidBase58 = errors.New("pubkey: invalid base58")
)

// Pubkey is a 32-byte public identifier.
//
// The zero value is not a valid identity; use IsZero to detect it.
type Pubkey [Size]byte

// FromBytes copies b into a Pubkey. b must be exactly Size bytes.
func FromBytes(b []byte) (Pubkey, error) {
	var p Pubkey
	if len(b) != Size {
		return p, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(b), Size)
	}
	copy(p[:], b)
	return p, nil
}

// FromBase58 decodes a base58-rendered identity. Empty input is a length
// error, not an alphabet error.
func FromBase58(s string) (Pubkey, error) {
	if s == "" {
		return Pubkey{}, fmt.Errorf("%w: empty input", ErrInvalidLength)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("%w: %v", ErrInvalidBase58, err)
	}
	return FromBytes(b)
}

// MustFromBase58 is FromBase58 for known-good constants; it panics on error.
func MustFromBase58(s string) Pubkey {
	p, err := FromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}

// FromSeed derives the identity from a 32-byte Ed25519 seed.
func FromSeed(seed []byte) (Pubkey, error) {
	if len(seed) != ed25519.SeedSize {
		return Pubkey{}, fmt.Errorf("%w: seed must be %d bytes", ErrInvalidLength, ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return FromBytes(priv.Public().(ed25519.PublicKey))
}

// Bytes returns a copy of the raw identity bytes.
func (p Pubkey) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, p[:])
	return out
}

// String renders the identity as base58.
func (p Pubkey) String() string { return base58.Encode(p[:]) }

func (p Pubkey) IsZero() bool { return p == Pubkey{} }

func (p Pubkey) Equal(o Pubkey) bool { return p == o }

// MarshalText renders base58 so Pubkey can be used directly in JSON/YAML keys.
func (p Pubkey) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Pubkey) UnmarshalText(text []byte) error {
	dec, err := FromBase58(string(text))
	if err != nil {
		return err
	}
	*p = dec
	return nil
}
