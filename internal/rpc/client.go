package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/caxton-rt/caxton/internal/domain"
)

// Client delivers messages to a single remote node over gRPC.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a remote node's RPC server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Deliver ships msg to the remote node, returning whether it accepted
// the message into its own router.
func (c *Client) Deliver(ctx context.Context, msg domain.Message) (accepted bool, reason string, err error) {
	req := &deliverRequest{Envelope: toEnvelope(msg)}
	resp := new(deliverResponse)
	if err := c.conn.Invoke(ctx, fullMethod, req, resp, grpc.CallContentSubtype(codecName)); err != nil {
		return false, "", fmt.Errorf("rpc: deliver: %w", err)
	}
	return resp.Accepted, resp.Reason, nil
}
