package network

import (
	"context"
	"sync"

	"golang.org/x/xerrors"
)

// ConnFactory creates the connection for a given conode address. It is
// supplied by the caller so that tests and different transports can
// plug in their own connections.
type ConnFactory func(addr string) (Conn, error)

// Pool keeps at most one Conn per conode address. Connections are
// created lazily on first use and reused for all subsequent calls with
// the same address. The pool never evicts, teardown is done with
// Close.
type Pool struct {
	factory ConnFactory

	sync.Mutex
	conns map[string]Conn
}

// NewPool returns an empty pool using the given factory.
func NewPool(factory ConnFactory) *Pool {
	return &Pool{
		factory: factory,
		conns:   make(map[string]Conn),
	}
}

// Conn returns the connection for addr, creating it on first use. The
// lock is held over the factory call, so the factory runs at most once
// per address even under concurrent first use. A factory error is
// returned to the caller and not cached.
func (p *Pool) Conn(addr string) (Conn, error) {
	p.Lock()
	defer p.Unlock()
	if c, ok := p.conns[addr]; ok {
		return c, nil
	}
	c, err := p.factory(addr)
	if err != nil {
		return nil, xerrors.Errorf("creating connection to %s: %v", addr, err)
	}
	p.conns[addr] = c
	return c, nil
}

// SendTo sends one frame to the conode at addr.
func (p *Pool) SendTo(ctx context.Context, addr string, msg []byte) error {
	c, err := p.Conn(addr)
	if err != nil {
		return err
	}
	return c.Send(ctx, msg)
}

// ReceiveFrom returns the next frame from the conode at addr.
func (p *Pool) ReceiveFrom(ctx context.Context, addr string) ([]byte, error) {
	c, err := p.Conn(addr)
	if err != nil {
		return nil, err
	}
	return c.Receive(ctx)
}

// Exchange sends one frame to the conode at addr and returns its
// reply.
func (p *Pool) Exchange(ctx context.Context, addr string, msg []byte) ([]byte, error) {
	c, err := p.Conn(addr)
	if err != nil {
		return nil, err
	}
	return c.Exchange(ctx, msg)
}

// Close closes all pooled connections and empties the pool. The first
// error encountered is returned.
func (p *Pool) Close() error {
	p.Lock()
	defer p.Unlock()
	var firstErr error
	for addr, c := range p.conns {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = xerrors.Errorf("closing %s: %v", addr, err)
		}
		delete(p.conns, addr)
	}
	return firstErr
}
