package rpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"fordefi.com/solhost/manifest"
	"fordefi.com/solhost/model"
	"fordefi.com/solhost/programs/fordefi"
	"fordefi.com/solhost/runtime"
	"fordefi.com/solhost/storage/memcas"
)

func newTestClient(t *testing.T) (*Client, *memcas.CAS) {
	t.Helper()

	reg := runtime.NewRegistry()
	reg.MustRegister(fordefi.Mainnet())
	reg.MustRegister(fordefi.Devnet())
	host := runtime.New(reg)
	cas := memcas.New()

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterHostServer(srv, &Server{Host: host, CAS: cas})

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	client := NewClient(cc)
	client.Timeout = 2 * time.Second
	return client, cas
}

func TestHostRPC_InvokeRoundTrip(t *testing.T) {
	client, _ := newTestClient(t)

	resp, err := client.Invoke(context.Background(), model.InvokeRequest{
		ProgramID:   fordefi.ProgramIDMainnet,
		Instruction: "initialize",
	})
	require.NoError(t, err)
	require.Equal(t, "initialize", resp.Receipt.Instruction)
	require.Equal(t, []string{fordefi.Greeting + " " + fordefi.ProgramIDMainnet}, resp.Receipt.Logs)
}

func TestHostRPC_InvokeErrorsCarryCodes(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Invoke(context.Background(), model.InvokeRequest{
		ProgramID:   fordefi.ProgramIDMainnet,
		Instruction: "initialize",
		Accounts: []model.AccountRef{
			{Pubkey: fordefi.ProgramIDDevnet, Signer: true, Writable: false},
		},
	})
	require.Error(t, err)
	var ce *model.CodedError
	require.True(t, errors.As(err, &ce), "want CodedError, got %T: %v", err, err)
	require.Equal(t, model.ErrAccountMismatch, ce.Code)

	_, err = client.Invoke(context.Background(), model.InvokeRequest{
		ProgramID:   "11111111111111111111111111111111",
		Instruction: "initialize",
	})
	require.True(t, errors.As(err, &ce))
	require.Equal(t, model.ErrProgramNotFound, ce.Code)
}

func TestHostRPC_GetManifest(t *testing.T) {
	client, cas := newTestClient(t)

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

	doc, err := client.GetManifest(context.Background(), id.String())
	require.NoError(t, err)
	require.Equal(t, id.String(), doc.CID)
	require.Equal(t, b, doc.Bytes)

	_, err = client.GetManifest(context.Background(), "not-a-cid")
	var ce *model.CodedError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, model.ErrInvalidCID, ce.Code)
}

func TestHostRPC_ListPrograms(t *testing.T) {
	client, _ := newTestClient(t)

	resp, err := client.ListPrograms(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, resp.Programs, 2)

	resp, err = client.ListPrograms(context.Background(), fordefi.ProgramIDDevnet)
	require.NoError(t, err)
	require.Len(t, resp.Programs, 1)
	require.Equal(t, fordefi.ProgramIDDevnet, resp.Programs[0].ProgramID)
}
