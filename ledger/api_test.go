package ledger

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/byzclient"
	"go.dedis.ch/byzclient/darc"
	"go.dedis.ch/byzclient/network"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/protobuf"
)

// newLedgerConode fakes the darc lookup endpoint of a conode serving
// the given darcs.
func newLedgerConode(t *testing.T, darcs ...*darc.Darc) *httptest.Server {
	byBase := make(map[string]*darc.Darc)
	for _, d := range darcs {
		byBase[hex.EncodeToString(d.GetBaseID())] = d
	}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Ledger/GetDarc" {
			http.NotFound(w, r)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			_, buf, err := ws.ReadMessage()
			if err != nil {
				return
			}
			req := &GetDarc{}
			if err := protobuf.Decode(buf, req); err != nil {
				return
			}
			reply := &GetDarcReply{Darc: byBase[hex.EncodeToString(req.BaseID)]}
			out, err := protobuf.Encode(reply)
			if err != nil {
				return
			}
			if err := ws.WriteMessage(websocket.BinaryMessage, out); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testServerIdentity(t *testing.T, url string) *network.ServerIdentity {
	kp := key.NewKeyPair(byzclient.Suite)
	si := network.NewServerIdentity(kp.Public, "tls://127.0.0.1:7770")
	si.URL = url
	return si
}

func testDarc() *darc.Darc {
	id := darc.NewSignerEd25519(nil, nil).Identity()
	return darc.NewDarc(darc.InitRules([]darc.Identity{id}, []darc.Identity{id}),
		[]byte("test"))
}

func TestClient_GetDarc(t *testing.T) {
	d := testDarc()
	srv := newLedgerConode(t, d)

	c := NewClient(network.NewRoster([]*network.ServerIdentity{
		testServerIdentity(t, srv.URL),
	}))
	defer c.Close()

	got, err := c.GetDarc(context.Background(), d.GetBaseID())
	require.NoError(t, err)
	require.True(t, d.Equal(got))

	// an unknown base ID is an error, not a nil darc
	_, err = c.GetDarc(context.Background(), darc.ID([]byte{1, 2, 3}))
	require.Error(t, err)
}

// TestClient_GetDarcFallback checks that the next conode of the roster
// is asked when the first one is unreachable.
func TestClient_GetDarcFallback(t *testing.T) {
	d := testDarc()
	srv := newLedgerConode(t, d)

	c := NewClient(network.NewRoster([]*network.ServerIdentity{
		testServerIdentity(t, "http://127.0.0.1:1"),
		testServerIdentity(t, srv.URL),
	}))
	defer c.Close()

	got, err := c.GetDarc(context.Background(), d.GetBaseID())
	require.NoError(t, err)
	require.True(t, d.Equal(got))
}

func TestClient_DarcResolver(t *testing.T) {
	// B's signers hold the key, A delegates to B - the resolver feeds
	// the fetches of the rule matching.
	k := darc.NewSignerEd25519(nil, nil).Identity()
	b := darc.NewDarc(darc.InitRules([]darc.Identity{k}, []darc.Identity{k}),
		[]byte("B"))
	a := darc.NewDarc(darc.InitRules([]darc.Identity{k}, []darc.Identity{k}),
		[]byte("A"))
	require.NoError(t, a.Rules.AddRule("spawn:coin",
		[]byte(darc.NewIdentityDarc(b.GetBaseID()).String())))

	srv := newLedgerConode(t, a, b)
	c := NewClient(network.NewRoster([]*network.ServerIdentity{
		testServerIdentity(t, srv.URL),
	}))
	defer c.Close()

	matched, err := a.RuleMatch(context.Background(), "spawn:coin",
		[]darc.Identity{k}, c.DarcResolver())
	require.NoError(t, err)
	require.Len(t, matched, 1)
}
