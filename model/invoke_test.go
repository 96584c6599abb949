package model_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"fordefi.com/solhost/artifactid"
	"fordefi.com/solhost/manifest"
	"fordefi.com/solhost/model"
	"fordefi.com/solhost/programs/fordefi"
	"fordefi.com/solhost/runtime"
	"fordefi.com/solhost/storage/memcas"
)

func newHost(t *testing.T) *runtime.Host {
	t.Helper()
	reg := runtime.NewRegistry()
	reg.MustRegister(fordefi.Mainnet())
	reg.MustRegister(fordefi.Devnet())
	return runtime.New(reg)
}

func TestInvoke_Success(t *testing.T) {
	host := newHost(t)

	resp, err := model.Invoke(context.Background(), host, model.InvokeRequest{
		ProgramID:   fordefi.ProgramIDMainnet,
		Instruction: "initialize",
	})
	require.NoError(t, err)
	require.Equal(t, fordefi.ProgramIDMainnet, resp.Receipt.ProgramID)
	require.Equal(t, "initialize", resp.Receipt.Instruction)
	require.Equal(t, []string{fordefi.Greeting + " " + fordefi.ProgramIDMainnet}, resp.Receipt.Logs)
	require.NotZero(t, resp.Receipt.UnitsConsumed)
}

func TestInvoke_ErrorCodes(t *testing.T) {
	host := newHost(t)

	cases := []struct {
		name string
		req  model.InvokeRequest
		code model.ErrorCode
	}{
		{
			name: "bad program id",
			req:  model.InvokeRequest{ProgramID: "not-base58-!!", Instruction: "initialize"},
			code: model.ErrInvalidRequest,
		},
		{
			name: "missing instruction",
			req:  model.InvokeRequest{ProgramID: fordefi.ProgramIDMainnet},
			code: model.ErrInvalidRequest,
		},
		{
			name: "both name and data",
			req: model.InvokeRequest{
				ProgramID:   fordefi.ProgramIDMainnet,
				Instruction: "initialize",
				Data:        []byte{1, 2, 3, 4, 5, 6, 7, 8},
			},
			code: model.ErrInvalidRequest,
		},
		{
			name: "program not deployed",
			req: model.InvokeRequest{
				ProgramID:   "11111111111111111111111111111111",
				Instruction: "initialize",
			},
			code: model.ErrProgramNotFound,
		},
		{
			name: "unknown instruction",
			req: model.InvokeRequest{
				ProgramID:   fordefi.ProgramIDMainnet,
				Instruction: "mint",
			},
			code: model.ErrUnknownInstruction,
		},
		{
			name: "unexpected account",
			req: model.InvokeRequest{
				ProgramID:   fordefi.ProgramIDMainnet,
				Instruction: "initialize",
				Accounts: []model.AccountRef{
					{Pubkey: fordefi.ProgramIDDevnet, Signer: true, Writable: true},
				},
			},
			code: model.ErrAccountMismatch,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := model.Invoke(context.Background(), host, tc.req)
			require.Error(t, err)
			var ce *model.CodedError
			require.True(t, errors.As(err, &ce), "want CodedError, got %T", err)
			require.Equal(t, tc.code, ce.Code)
		})
	}
}

func TestInvoke_RawData(t *testing.T) {
	host := newHost(t)

	// Selector for "initialize", computed independently of EncodeData.
	data := []byte{0xaf, 0xaf, 0x6d, 0x1f, 0x0d, 0x98, 0x9b, 0xed}
	resp, err := model.Invoke(context.Background(), host, model.InvokeRequest{
		ProgramID: fordefi.ProgramIDDevnet,
		Data:      data,
	})
	require.NoError(t, err)
	require.Equal(t, "initialize", resp.Receipt.Instruction)
}

func TestListPrograms(t *testing.T) {
	host := newHost(t)

	resp := model.ListPrograms(host)
	require.Len(t, resp.Programs, 2)
	for _, p := range resp.Programs {
		require.Equal(t, []string{"initialize"}, p.Instructions)
	}
}

func TestGetManifest(t *testing.T) {
	cas := memcas.New()
	b := manifest.Render(manifest.Manifest{
		HostID:       "fordefi-host",
		ProgramID:    fordefi.ProgramIDMainnet,
		Name:         "fordefi",
		Cluster:      "mainnet",
		ArtifactCID:  "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy",
		Instructions: []string{"initialize"},
	}, manifest.SignOptions{})

	id, err := cas.Put(b)
	require.NoError(t, err)

	doc, err := model.GetManifest(cas, id.String())
	require.NoError(t, err)
	require.Equal(t, id.String(), doc.CID)
	require.Equal(t, b, doc.Bytes)

	_, err = model.GetManifest(cas, "not-a-cid")
	var ce *model.CodedError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, model.ErrInvalidCID, ce.Code)

	_, err = model.GetManifest(memcas.New(), id.String())
	require.True(t, errors.As(err, &ce))
	require.Equal(t, model.ErrNotFound, ce.Code)
}

// misdirectingCAS answers every Get with the same bytes, whatever CID was
// asked for. A well-behaved store never does this; the boundary must catch it.
type misdirectingCAS struct {
	bytes []byte
}

func (c misdirectingCAS) Put(b []byte) (cid.Cid, error) { return artifactid.CIDForBytes(b) }
func (c misdirectingCAS) Get(cid.Cid) ([]byte, error)   { return c.bytes, nil }
func (c misdirectingCAS) Has(cid.Cid) bool              { return true }

func TestGetManifest_RejectsBytesNotMatchingRequestedCID(t *testing.T) {
	mainnet := manifest.Render(manifest.Manifest{
		HostID:       "fordefi-host",
		ProgramID:    fordefi.ProgramIDMainnet,
		Name:         "fordefi",
		Cluster:      "mainnet",
		ArtifactCID:  "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy",
		Instructions: []string{"initialize"},
	}, manifest.SignOptions{})
	devnet := manifest.Render(manifest.Manifest{
		HostID:       "fordefi-host",
		ProgramID:    fordefi.ProgramIDDevnet,
		Name:         "fordefi",
		Cluster:      "devnet",
		ArtifactCID:  "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy",
		Instructions: []string{"initialize"},
	}, manifest.SignOptions{})

	// The store hands back canonical devnet bytes for the mainnet CID.
	_, err := model.GetManifest(misdirectingCAS{bytes: devnet}, artifactid.ForBytes(mainnet))
	var ce *model.CodedError
	require.True(t, errors.As(err, &ce), "want CodedError, got %T: %v", err, err)
	require.Equal(t, model.ErrCIDMismatch, ce.Code)
}
