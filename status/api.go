// Package status implements the client side of the status service,
// which reports the state and counters of a conode.
package status

import (
	"context"

	"go.dedis.ch/byzclient/network"
	"golang.org/x/xerrors"
)

// endpoint of the status service on the conodes.
const endpoint = "/Status/Request"

// Client talks to the status service of the conodes of a roster.
type Client struct {
	roster *network.Roster
	pool   *network.Pool
}

// NewClient makes a new status client for the given roster.
func NewClient(roster *network.Roster) *Client {
	return &Client{
		roster: roster,
		pool: network.NewPool(func(addr string) (network.Conn, error) {
			return network.NewWSConn(addr), nil
		}),
	}
}

// Status fetches the status of the conode at the given roster index.
func (c *Client) Status(ctx context.Context, index int) (*Response, error) {
	if index < 0 || index >= len(c.roster.List) {
		return nil, xerrors.New("index out of bound for the roster")
	}
	si := c.roster.List[index]
	base, err := si.WebSocketAddress()
	if err != nil {
		return nil, xerrors.Errorf("resolving %s: %v", si.Address, err)
	}
	conn, err := c.pool.Conn(base + endpoint)
	if err != nil {
		return nil, err
	}
	resp := &Response{}
	if err := network.Call(ctx, conn, &Request{}, resp); err != nil {
		return nil, xerrors.Errorf("asking status of %s: %w", si.Address, err)
	}
	return resp, nil
}

// Close tears down all connections of the client.
func (c *Client) Close() error {
	return c.pool.Close()
}
