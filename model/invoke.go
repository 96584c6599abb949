package model

import (
	"context"
	"errors"
	"strconv"

	"github.com/ipfs/go-cid"

	"fordefi.com/solhost/instruction"
	"fordefi.com/solhost/manifest"
	"fordefi.com/solhost/pubkey"
	"fordefi.com/solhost/runtime"
	"fordefi.com/solhost/storage"
)

// Invoke runs one instruction through the host and returns the JSON-facing
// receipt. All failures are CodedErrors.
func Invoke(ctx context.Context, host *runtime.Host, req InvokeRequest) (*InvokeResponse, error) {
	ix, err := toInstruction(req)
	if err != nil {
		return nil, err
	}

	receipt, err := host.Invoke(ctx, ix)
	if err != nil {
		return nil, mapErr(err)
	}

	return &InvokeResponse{Receipt: Receipt{
		ProgramID:     receipt.ProgramID.String(),
		Instruction:   receipt.Instruction,
		Logs:          append([]string(nil), receipt.Logs...),
		UnitsConsumed: receipt.UnitsConsumed,
		LogsTruncated: receipt.LogsTruncated,
	}}, nil
}

// ListPrograms reports the deployed programs and their instruction surfaces.
func ListPrograms(host *runtime.Host) ListProgramsResponse {
	reg := host.Registry()
	var out ListProgramsResponse
	for _, id := range reg.IDs() {
		prog, ok := reg.Lookup(id)
		if !ok {
			continue
		}
		info := ProgramInfo{ProgramID: id.String()}
		for _, spec := range prog.Instructions() {
			info.Instructions = append(info.Instructions, spec.Name)
		}
		out.Programs = append(out.Programs, info)
	}
	return out
}

// GetManifest fetches manifest bytes by CID from the artifact store and
// re-verifies canonical form before returning them.
func GetManifest(cas storage.CAS, cidStr string) (*ManifestDocument, error) {
	if cas == nil {
		return nil, NewError(ErrInvalidRequest, "no artifact store configured")
	}
	id, err := cid.Decode(cidStr)
	if err != nil {
		return nil, NewError(ErrInvalidCID, "invalid manifest cid")
	}
	b, err := cas.Get(id)
	if err != nil {
		return nil, mapErr(err)
	}
	doc, err := manifest.NewDocumentFromBytes(b)
	if err != nil {
		return nil, NewError(ErrInternal, "stored manifest not canonical: "+err.Error())
	}
	// The store already verifies content addresses, but this boundary does not
	// trust the store: the recomputed CID must match the one requested.
	if doc.CID != id.String() {
		return nil, NewError(ErrCIDMismatch, "manifest bytes hash to "+doc.CID+", requested "+id.String())
	}
	return &ManifestDocument{Bytes: doc.Bytes, CID: doc.CID}, nil
}

func toInstruction(req InvokeRequest) (instruction.Instruction, error) {
	programID, err := pubkey.FromBase58(req.ProgramID)
	if err != nil {
		return instruction.Instruction{}, NewError(ErrInvalidRequest, "invalid program id: "+err.Error())
	}

	if req.Instruction != "" && len(req.Data) > 0 {
		return instruction.Instruction{}, NewError(ErrInvalidRequest, "request has both instruction name and raw data")
	}

	var data []byte
	switch {
	case req.Instruction != "":
		data, err = instruction.EncodeData(req.Instruction, nil)
		if err != nil {
			return instruction.Instruction{}, NewError(ErrInvalidRequest, "encode instruction: "+err.Error())
		}
		data = append(data, req.Args...)
	case len(req.Data) > 0:
		data = req.Data
	default:
		return instruction.Instruction{}, NewError(ErrInvalidRequest, "request missing instruction name or data")
	}

	accounts := make([]instruction.AccountMeta, 0, len(req.Accounts))
	for i, a := range req.Accounts {
		pk, err := pubkey.FromBase58(a.Pubkey)
		if err != nil {
			return instruction.Instruction{}, NewError(ErrInvalidRequest, "invalid account["+strconv.Itoa(i)+"] pubkey: "+err.Error())
		}
		accounts = append(accounts, instruction.AccountMeta{
			Pubkey:     pk,
			IsSigner:   a.Signer,
			IsWritable: a.Writable,
		})
	}

	return instruction.Instruction{
		ProgramID: programID,
		Accounts:  accounts,
		Data:      data,
	}, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}
	switch runtime.ErrKind(err) {
	case runtime.KindProgramNotFound:
		return NewError(ErrProgramNotFound, err.Error())
	case runtime.KindUnknownInstruction:
		return NewError(ErrUnknownInstruction, err.Error())
	case runtime.KindAccountValidation:
		return NewError(ErrAccountMismatch, err.Error())
	case runtime.KindCompute:
		return NewError(ErrComputeExhausted, err.Error())
	case runtime.KindAborted:
		return NewError(ErrAborted, err.Error())
	}
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(ErrNotFound, err.Error())
	}
	if errors.Is(err, storage.ErrCIDMismatch) {
		return NewError(ErrCIDMismatch, err.Error())
	}
	if errors.Is(err, storage.ErrInvalidCID) {
		return NewError(ErrInvalidCID, err.Error())
	}
	return NewError(ErrInternal, err.Error())
}
