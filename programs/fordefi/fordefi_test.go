package fordefi

import (
	"context"
	"fmt"
	"testing"

	"fordefi.com/solhost/instruction"
	"fordefi.com/solhost/pubkey"
	"fordefi.com/solhost/runtime"
)

func newHost(t *testing.T, progs ...*Program) *runtime.Host {
	t.Helper()
	reg := runtime.NewRegistry()
	for _, p := range progs {
		if err := reg.Register(p); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return runtime.New(reg)
}

func TestInitializeEmitsGreeting(t *testing.T) {
	cases := []struct {
		name string
		prog *Program
		id   string
	}{
		{"mainnet", Mainnet(), ProgramIDMainnet},
		{"devnet", Devnet(), ProgramIDDevnet},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			host := newHost(t, tc.prog)
			ix := instruction.New(tc.prog.ID(), "initialize", nil)

			receipt, err := host.Invoke(context.Background(), ix)
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			if receipt.Instruction != "initialize" {
				t.Fatalf("Instruction: got %q", receipt.Instruction)
			}
			want := fmt.Sprintf("%s %s", Greeting, tc.id)
			if len(receipt.Logs) != 1 {
				t.Fatalf("Logs: got %d records, want exactly 1 (%v)", len(receipt.Logs), receipt.Logs)
			}
			if receipt.Logs[0] != want {
				t.Fatalf("log record: got %q want %q", receipt.Logs[0], want)
			}
			if receipt.UnitsConsumed == 0 {
				t.Fatalf("expected nonzero compute for the log emission")
			}
		})
	}
}

func TestInitializeRejectsAccountsBeforeHandler(t *testing.T) {
	prog := Mainnet()
	host := newHost(t, prog)

	extra := pubkey.MustFromBase58(ProgramIDDevnet)
	ix := instruction.New(prog.ID(), "initialize", []instruction.AccountMeta{{Pubkey: extra}})

	_, err := host.Invoke(context.Background(), ix)
	if !runtime.IsKind(err, runtime.KindAccountValidation) {
		t.Fatalf("got %v, want AccountValidation", err)
	}
}

func TestInitializeIsRepeatableAndStateless(t *testing.T) {
	prog := Devnet()
	host := newHost(t, prog)
	ix := instruction.New(prog.ID(), "initialize", nil)

	var first *runtime.Receipt
	for i := 0; i < 5; i++ {
		receipt, err := host.Invoke(context.Background(), ix)
		if err != nil {
			t.Fatalf("Invoke %d: %v", i, err)
		}
		if first == nil {
			first = receipt
			continue
		}
		if receipt.Logs[0] != first.Logs[0] || receipt.UnitsConsumed != first.UnitsConsumed {
			t.Fatalf("invocation %d observable outcome diverged", i)
		}
	}
	// The registry is the only world state; invocations never grow it.
	if got := len(host.Registry().IDs()); got != 1 {
		t.Fatalf("registry changed: %d programs", got)
	}
}

func TestUnknownInstructionRejected(t *testing.T) {
	prog := Mainnet()
	host := newHost(t, prog)
	ix := instruction.New(prog.ID(), "finalize", nil)

	_, err := host.Invoke(context.Background(), ix)
	if !runtime.IsKind(err, runtime.KindUnknownInstruction) {
		t.Fatalf("got %v, want UnknownInstruction", err)
	}
}

func TestDeploymentsAreDistinct(t *testing.T) {
	host := newHost(t, Mainnet(), Devnet())
	for _, id := range []string{ProgramIDMainnet, ProgramIDDevnet} {
		ix := instruction.New(pubkey.MustFromBase58(id), "initialize", nil)
		receipt, err := host.Invoke(context.Background(), ix)
		if err != nil {
			t.Fatalf("Invoke %s: %v", id, err)
		}
		want := fmt.Sprintf("%s %s", Greeting, id)
		if receipt.Logs[0] != want {
			t.Fatalf("log for %s: got %q want %q", id, receipt.Logs[0], want)
		}
	}
}
