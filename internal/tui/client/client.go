package client

import (
	"context"
	"time"

	"github.com/matheus3301/connect/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

// Client wraps the gRPC connection to a profile daemon.
type Client struct {
	conn *grpc.ClientConn
	Ipm  *rpc.IpmServiceClient
}

// New dials the daemon's Unix domain socket and returns a typed service client.
func New(socketPath string) (*Client, error) {
	conn, err := rpc.Dial(socketPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		Ipm:  rpc.NewIpmServiceClient(conn),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Probe reports whether a daemon answers on socketPath. Unlike a bare socket
// connect it performs a real status call.
func Probe(socketPath string, timeout time.Duration) bool {
	c, err := New(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err = c.Ipm.GetStatus(ctx, &emptypb.Empty{})
	return err == nil
}
