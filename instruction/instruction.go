// Package instruction models externally invocable program operations.
//
// An instruction names a target program, carries an ordered account list, and
// a data payload whose first eight bytes select the operation (see
// Discriminator). Argument bytes after the discriminator are borsh-encoded.
package instruction

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/near/borsh-go"

	"fordefi.com/solhost/pubkey"
)

// DiscriminatorSize is the length of the operation selector prefix.
const DiscriminatorSize = 8

var (
	ErrDataTooShort = errors.New("instruction: data shorter than discriminator")
)

// AccountMeta describes one account supplied to an invocation.
type AccountMeta struct {
	Pubkey     pubkey.Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single invocation request routed to a deployed program.
type Instruction struct {
	ProgramID pubkey.Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// Discriminator derives the 8-byte selector for a named instruction.
//
// The selector is the first eight bytes of sha256("global:" + name), matching
// the wire identifiers produced by the framework that generated the deployed
// programs. It is fixed per deployment and never changes for a given name.
func Discriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var out [DiscriminatorSize]byte
	copy(out[:], sum[:DiscriminatorSize])
	return out
}

// EncodeData builds instruction data: the selector for name followed by the
// borsh encoding of args. A nil args produces selector-only data, which is the
// canonical encoding for instructions without parameters.
func EncodeData(name string, args interface{}) ([]byte, error) {
	disc := Discriminator(name)
	if args == nil {
		return disc[:], nil
	}
	body, err := borsh.Serialize(args)
	if err != nil {
		return nil, fmt.Errorf("instruction: encode %q args: %w", name, err)
	}
	return append(disc[:], body...), nil
}

// Split separates instruction data into its selector and argument bytes.
func Split(data []byte) ([DiscriminatorSize]byte, []byte, error) {
	var disc [DiscriminatorSize]byte
	if len(data) < DiscriminatorSize {
		return disc, nil, ErrDataTooShort
	}
	copy(disc[:], data[:DiscriminatorSize])
	return disc, data[DiscriminatorSize:], nil
}

// DecodeArgs borsh-decodes argument bytes into out.
func DecodeArgs(args []byte, out interface{}) error {
	if err := borsh.Deserialize(out, args); err != nil {
		return fmt.Errorf("instruction: decode args: %w", err)
	}
	return nil
}

// New builds a selector-only instruction for a named operation.
func New(programID pubkey.Pubkey, name string, accounts []AccountMeta) Instruction {
	disc := Discriminator(name)
	return Instruction{
		ProgramID: programID,
		Accounts:  append([]AccountMeta(nil), accounts...),
		Data:      disc[:],
	}
}
