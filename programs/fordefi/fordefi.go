// Package fordefi implements the Fordefi greeter program.
//
// The program exposes a single initialize instruction that requires exactly
// zero accounts, emits one greeting log record containing the deployment's
// identity, and always succeeds. It mutates no state and calls no other
// program.
//
// Two deployments of the same program exist, differing only in the identity
// baked in at deployment time: a mainnet target and a devnet target.
package fordefi

import (
	"fordefi.com/solhost/program"
	"fordefi.com/solhost/pubkey"
)

// Greeting is the fixed log prefix emitted by initialize.
const Greeting = "Greetings from Fordefi!"

// Deployment identities.
const (
	ProgramIDMainnet = "9Weyw3FD5WuXdXMcMMiCRusTQwNLZaMeWQPBKBpFFjwa"
	ProgramIDDevnet  = "GQxHpCW7Uv7DS2LxLS9sh7Tkstug27Ho14JiZTFJ3n2H"
)

// Program is the greeter program bound to one deployment identity.
type Program struct {
	id pubkey.Pubkey
}

// New binds the program to a deployment identity.
func New(id pubkey.Pubkey) *Program {
	return &Program{id: id}
}

// Mainnet returns the mainnet deployment.
func Mainnet() *Program { return New(pubkey.MustFromBase58(ProgramIDMainnet)) }

// Devnet returns the devnet deployment.
func Devnet() *Program { return New(pubkey.MustFromBase58(ProgramIDDevnet)) }

func (p *Program) ID() pubkey.Pubkey { return p.id }

// Instructions declares the program's single instruction. initialize requires
// exactly zero accounts; the runtime rejects anything else before the handler
// runs.
func (p *Program) Instructions() []program.Spec {
	return []program.Spec{
		{
			Name:    "initialize",
			Handler: p.initialize,
		},
	}
}

func (p *Program) initialize(ctx *program.Context, args []byte) error {
	return ctx.Logf("%s %s", Greeting, ctx.ProgramID())
}
