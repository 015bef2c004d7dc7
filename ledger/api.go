// Package ledger implements the darc-fetching side of the ledger
// client. It realizes the GetDarc boundary the darc package expects:
// resolving a base ID to the latest darc of that chain by asking the
// conodes of a roster.
package ledger

import (
	"context"

	"go.dedis.ch/byzclient/darc"
	"go.dedis.ch/byzclient/network"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

// endpoint of the darc lookup on the conodes.
const endpoint = "/Ledger/GetDarc"

// Client fetches darcs from the conodes of a roster.
type Client struct {
	roster *network.Roster
	pool   *network.Pool
}

// NewClient makes a new ledger client for the given roster.
func NewClient(roster *network.Roster) *Client {
	return &Client{
		roster: roster,
		pool: network.NewPool(func(addr string) (network.Conn, error) {
			return network.NewWSConn(addr), nil
		}),
	}
}

// GetDarc returns the latest darc of the chain with the given base ID.
// The conodes of the roster are asked in order until one of them
// replies.
func (c *Client) GetDarc(ctx context.Context, baseID darc.ID) (*darc.Darc, error) {
	err := xerrors.New("roster is empty")
	for _, si := range c.roster.List {
		var d *darc.Darc
		d, err = c.getDarcFrom(ctx, si, baseID)
		if err == nil {
			return d, nil
		}
		log.Lvlf2("conode %s: %+v", si.Address, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, xerrors.Errorf("getting darc %x: %w", baseID, err)
}

// DarcResolver returns the fetch callback used by Darc.RuleMatch and
// Darc.CheckRequest.
func (c *Client) DarcResolver() darc.GetDarc {
	return func(ctx context.Context, baseID darc.ID) (*darc.Darc, error) {
		return c.GetDarc(ctx, baseID)
	}
}

// Close tears down all connections of the client.
func (c *Client) Close() error {
	return c.pool.Close()
}

func (c *Client) getDarcFrom(ctx context.Context, si *network.ServerIdentity,
	baseID darc.ID) (*darc.Darc, error) {
	base, err := si.WebSocketAddress()
	if err != nil {
		return nil, xerrors.Errorf("resolving %s: %v", si.Address, err)
	}
	conn, err := c.pool.Conn(base + endpoint)
	if err != nil {
		return nil, err
	}
	reply := &GetDarcReply{}
	if err := network.Call(ctx, conn, &GetDarc{BaseID: baseID}, reply); err != nil {
		return nil, err
	}
	if reply.Darc == nil {
		return nil, xerrors.Errorf("conode doesn't know darc %x", baseID)
	}
	return reply.Darc, nil
}
