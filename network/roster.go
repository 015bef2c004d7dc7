package network

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"go.dedis.ch/byzclient"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/encoding"
	"golang.org/x/xerrors"
)

// Address points to a conode in the form "tls://host:port" (the
// inter-conode address, as found in a group.toml).
type Address string

// WebSocketAddress returns the URL of the websocket service of the
// conode. By convention it listens one port above the inter-conode
// port.
func (a Address) WebSocketAddress() (string, error) {
	u, err := url.Parse(string(a))
	if err != nil {
		return "", xerrors.Errorf("parsing address %s: %v", a, err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return "", xerrors.Errorf("address %s has no port: %v", a, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", xerrors.Errorf("invalid port in %s: %v", a, err)
	}
	return fmt.Sprintf("ws://%s", net.JoinHostPort(host, strconv.Itoa(port+1))), nil
}

// ServerIdentity describes one conode of a roster.
type ServerIdentity struct {
	Public      kyber.Point
	Address     Address
	Description string
	// URL, when set, is used for the websocket endpoint instead of
	// the port+1 convention, e.g. for conodes behind a proxy.
	URL string
}

// NewServerIdentity returns a ServerIdentity for the given public key
// and address.
func NewServerIdentity(public kyber.Point, addr Address) *ServerIdentity {
	return &ServerIdentity{
		Public:  public,
		Address: addr,
	}
}

// WebSocketAddress returns the base websocket URL of the conode,
// without a trailing slash.
func (si *ServerIdentity) WebSocketAddress() (string, error) {
	if si.URL == "" {
		return si.Address.WebSocketAddress()
	}
	u, err := url.Parse(si.URL)
	if err != nil {
		return "", xerrors.Errorf("parsing URL %s: %v", si.URL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", xerrors.Errorf("unknown scheme in URL %s", si.URL)
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}

func (si *ServerIdentity) String() string {
	return string(si.Address)
}

// Roster is the list of conodes of a service cluster.
type Roster struct {
	List []*ServerIdentity
}

// NewRoster returns a roster from the given list.
func NewRoster(list []*ServerIdentity) *Roster {
	return &Roster{List: list}
}

// GroupToml is the structure of a group.toml file describing a roster.
type GroupToml struct {
	Description string
	Servers     []*ServerToml `toml:"servers"`
}

// ServerToml is one server entry of a group.toml file.
type ServerToml struct {
	Address     Address
	Public      string
	Description string
	URL         string `toml:"URL,omitempty"`
}

// ReadGroupToml reads a group.toml file and returns the roster it
// describes.
func ReadGroupToml(f io.Reader) (*Roster, error) {
	group := &GroupToml{}
	if _, err := toml.DecodeReader(f, group); err != nil {
		return nil, xerrors.Errorf("decoding group toml: %v", err)
	}
	if len(group.Servers) == 0 {
		return nil, xerrors.New("empty servers list")
	}
	list := make([]*ServerIdentity, len(group.Servers))
	for i, s := range group.Servers {
		si, err := s.ToServerIdentity()
		if err != nil {
			return nil, xerrors.Errorf("server %d: %v", i, err)
		}
		list[i] = si
	}
	return NewRoster(list), nil
}

// ToServerIdentity converts this toml entry to a ServerIdentity.
func (s *ServerToml) ToServerIdentity() (*ServerIdentity, error) {
	public, err := encoding.StringHexToPoint(byzclient.Suite, s.Public)
	if err != nil {
		return nil, xerrors.Errorf("parsing public key %s: %v", s.Public, err)
	}
	si := NewServerIdentity(public, s.Address)
	si.Description = s.Description
	si.URL = s.URL
	return si, nil
}
