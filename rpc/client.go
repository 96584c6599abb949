package rpc

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"fordefi.com/solhost/model"
)

// Client is a typed client for the Host gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client HostClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewHostClient(cc), Timeout: 0}, nil
}

// NewClient wraps an existing connection (e.g. bufconn in tests).
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewHostClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Invoke(ctx context.Context, req model.InvokeRequest) (*model.InvokeResponse, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	b, err := json.Marshal(req)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidRequest, "encode invoke request: "+err.Error())
	}
	reply, err := c.client.Invoke(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return nil, codedFromRPC(err)
	}
	var resp model.InvokeResponse
	if err := json.Unmarshal(reply.GetValue(), &resp); err != nil {
		return nil, model.NewError(model.ErrInternal, "decode invoke response: "+err.Error())
	}
	return &resp, nil
}

func (c *Client) GetManifest(ctx context.Context, cid string) (*model.ManifestDocument, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.GetManifest(ctx, wrapperspb.String(cid))
	if err != nil {
		return nil, codedFromRPC(err)
	}
	var doc model.ManifestDocument
	if err := json.Unmarshal(reply.GetValue(), &doc); err != nil {
		return nil, model.NewError(model.ErrInternal, "decode manifest document: "+err.Error())
	}
	return &doc, nil
}

func (c *Client) ListPrograms(ctx context.Context, filter string) (*model.ListProgramsResponse, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.ListPrograms(ctx, wrapperspb.String(filter))
	if err != nil {
		return nil, codedFromRPC(err)
	}
	var resp model.ListProgramsResponse
	if err := json.Unmarshal(reply.GetValue(), &resp); err != nil {
		return nil, model.NewError(model.ErrInternal, "decode program list: "+err.Error())
	}
	return &resp, nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
