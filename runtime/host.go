// Package runtime implements the hosting runtime: it routes invocations to
// deployed programs, enforces structural account constraints before program
// logic runs, meters compute, and collects program log output into receipts.
package runtime

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"fordefi.com/solhost/instruction"
	"fordefi.com/solhost/program"
	"fordefi.com/solhost/pubkey"
)

// DefaultComputeBudget is the per-invocation compute budget.
const DefaultComputeBudget = 200_000

// Receipt is the observable outcome of one successful invocation.
type Receipt struct {
	ProgramID     pubkey.Pubkey `json:"programId"`
	Instruction   string        `json:"instruction"`
	Logs          []string      `json:"logs"`
	UnitsConsumed uint64        `json:"unitsConsumed"`
	LogsTruncated bool          `json:"logsTruncated,omitempty"`
}

// Host dispatches invocations against a registry of deployed programs.
//
// A Host holds no per-invocation state; concurrent invocations are
// independent and share only the read-only registry.
type Host struct {
	reg           *Registry
	logger        *zap.Logger
	computeBudget uint64
	logLimit      int
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the operational logger (program log output is never routed
// here; it belongs to receipts).
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// WithComputeBudget overrides the per-invocation compute budget.
// A zero budget disables metering.
func WithComputeBudget(units uint64) Option {
	return func(h *Host) { h.computeBudget = units }
}

// WithLogLimit overrides the per-invocation program log byte limit.
func WithLogLimit(bytes int) Option {
	return func(h *Host) { h.logLimit = bytes }
}

// New builds a Host over reg.
func New(reg *Registry, opts ...Option) *Host {
	h := &Host{
		reg:           reg,
		logger:        zap.NewNop(),
		computeBudget: DefaultComputeBudget,
		logLimit:      program.DefaultLogLimit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Registry returns the host's program registry.
func (h *Host) Registry() *Registry { return h.reg }

// Invoke routes one instruction to its program.
//
// Pipeline: lookup program, select the instruction by its data selector,
// validate the supplied account list against the instruction's declared
// structure, then run the handler under a fresh meter and log collector.
// Account validation happens strictly before the handler; a handler never
// observes an account list that violates its declaration.
func (h *Host) Invoke(ctx context.Context, ix instruction.Instruction) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapError(KindInternal, "invocation context done", err)
	}

	prog, ok := h.reg.Lookup(ix.ProgramID)
	if !ok {
		return nil, newError(KindProgramNotFound, fmt.Sprintf("program %s not deployed", ix.ProgramID))
	}

	disc, args, err := instruction.Split(ix.Data)
	if err != nil {
		return nil, wrapError(KindUnknownInstruction, "instruction data has no selector", err)
	}

	spec, ok := findSpec(prog, disc)
	if !ok {
		return nil, newError(KindUnknownInstruction, fmt.Sprintf("program %s has no instruction with selector %x", ix.ProgramID, disc))
	}

	if err := validateAccounts(spec, ix.Accounts); err != nil {
		return nil, err
	}

	meter := program.NewMeter(h.computeBudget)
	pctx := program.NewContext(prog.ID(), ix.Accounts, meter, h.logLimit)

	if err := h.run(spec, pctx, args); err != nil {
		return nil, err
	}

	receipt := &Receipt{
		ProgramID:     prog.ID(),
		Instruction:   spec.Name,
		Logs:          pctx.Logs(),
		UnitsConsumed: meter.Used(),
		LogsTruncated: pctx.LogsTruncated(),
	}
	h.logger.Debug("invocation complete",
		zap.String("program", prog.ID().String()),
		zap.String("instruction", spec.Name),
		zap.Uint64("units", receipt.UnitsConsumed),
		zap.Int("logs", len(receipt.Logs)),
	)
	return receipt, nil
}

// run executes the handler, converting panics and handler failures into
// structured errors.
func (h *Host) run(spec program.Spec, pctx *program.Context, args []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Warn("program panicked",
				zap.String("program", pctx.ProgramID().String()),
				zap.String("instruction", spec.Name),
				zap.Any("panic", r),
			)
			err = newError(KindAborted, fmt.Sprintf("instruction %q panicked: %v", spec.Name, r))
		}
	}()

	if spec.Handler == nil {
		return newError(KindInternal, fmt.Sprintf("instruction %q has no handler", spec.Name))
	}
	if herr := spec.Handler(pctx, args); herr != nil {
		if errors.Is(herr, program.ErrComputeExhausted) {
			return wrapError(KindCompute, fmt.Sprintf("instruction %q exceeded compute budget", spec.Name), herr)
		}
		return wrapError(KindAborted, fmt.Sprintf("instruction %q failed", spec.Name), herr)
	}
	return nil
}

func findSpec(prog program.Program, disc [instruction.DiscriminatorSize]byte) (program.Spec, bool) {
	for _, spec := range prog.Instructions() {
		if instruction.Discriminator(spec.Name) == disc {
			return spec, true
		}
	}
	return program.Spec{}, false
}

// validateAccounts enforces the instruction's declared account structure.
// Count must match exactly and each position's signer/writable flags must
// match the declaration.
func validateAccounts(spec program.Spec, supplied []instruction.AccountMeta) error {
	if len(supplied) != len(spec.Accounts) {
		return newError(KindAccountValidation, fmt.Sprintf(
			"instruction %q requires exactly %d accounts, got %d",
			spec.Name, len(spec.Accounts), len(supplied),
		))
	}
	for i, slot := range spec.Accounts {
		got := supplied[i]
		if got.IsSigner != slot.Signer {
			return newError(KindAccountValidation, fmt.Sprintf(
				"instruction %q account %q: signer=%t, want %t",
				spec.Name, slot.Name, got.IsSigner, slot.Signer,
			))
		}
		if got.IsWritable != slot.Writable {
			return newError(KindAccountValidation, fmt.Sprintf(
				"instruction %q account %q: writable=%t, want %t",
				spec.Name, slot.Name, got.IsWritable, slot.Writable,
			))
		}
	}
	return nil
}
