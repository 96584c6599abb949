// Package program defines the contract between the hosting runtime and
// deployed programs.
//
// A Program declares its instructions; each instruction names its required
// account structure and a handler. The runtime validates the account structure
// before a handler runs, so handlers never see an account list that does not
// match their declaration.
package program

import (
	"fordefi.com/solhost/pubkey"
)

// Handler executes one instruction. args are the instruction data bytes after
// the selector (borsh-encoded when present).
type Handler func(ctx *Context, args []byte) error

// AccountSlot declares one required account position.
type AccountSlot struct {
	Name     string
	Signer   bool
	Writable bool
}

// Spec declares a single instruction: its name (from which the wire selector
// is derived), the exact account structure it requires, and its handler.
//
// An empty Accounts slice means the instruction requires exactly zero
// accounts; the runtime rejects any invocation supplying accounts before the
// handler runs.
type Spec struct {
	Name     string
	Accounts []AccountSlot
	Handler  Handler
}

// Program is a deployed program: a fixed identity plus its instruction set.
type Program interface {
	ID() pubkey.Pubkey
	Instructions() []Spec
}
