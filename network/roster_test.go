package network

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/byzclient"
	"go.dedis.ch/kyber/v3/util/encoding"
	"go.dedis.ch/kyber/v3/util/key"
)

func TestAddress_WebSocketAddress(t *testing.T) {
	ws, err := Address("tls://conode.example:7770").WebSocketAddress()
	require.NoError(t, err)
	require.Equal(t, "ws://conode.example:7771", ws)

	_, err = Address("tls://conode.example").WebSocketAddress()
	require.Error(t, err)
}

func TestServerIdentity_URLOverride(t *testing.T) {
	kp := key.NewKeyPair(byzclient.Suite)
	si := NewServerIdentity(kp.Public, "tls://conode.example:7770")

	ws, err := si.WebSocketAddress()
	require.NoError(t, err)
	require.Equal(t, "ws://conode.example:7771", ws)

	si.URL = "https://conode.example/"
	ws, err = si.WebSocketAddress()
	require.NoError(t, err)
	require.Equal(t, "wss://conode.example", ws)

	si.URL = "http://conode.example:8080"
	ws, err = si.WebSocketAddress()
	require.NoError(t, err)
	require.Equal(t, "ws://conode.example:8080", ws)

	si.URL = "ftp://conode.example"
	_, err = si.WebSocketAddress()
	require.Error(t, err)
}

func TestReadGroupToml(t *testing.T) {
	kp1 := key.NewKeyPair(byzclient.Suite)
	kp2 := key.NewKeyPair(byzclient.Suite)
	pub1, err := encoding.PointToStringHex(byzclient.Suite, kp1.Public)
	require.NoError(t, err)
	pub2, err := encoding.PointToStringHex(byzclient.Suite, kp2.Public)
	require.NoError(t, err)

	group := fmt.Sprintf(`Description = "test cluster"

[[servers]]
Address = "tls://127.0.0.1:7770"
Public = "%s"
Description = "conode 1"

[[servers]]
Address = "tls://127.0.0.1:7772"
Public = "%s"
URL = "https://conode.example"
`, pub1, pub2)

	roster, err := ReadGroupToml(strings.NewReader(group))
	require.NoError(t, err)
	require.Len(t, roster.List, 2)
	require.True(t, roster.List[0].Public.Equal(kp1.Public))
	require.Equal(t, Address("tls://127.0.0.1:7770"), roster.List[0].Address)
	require.Equal(t, "conode 1", roster.List[0].Description)
	require.Equal(t, "https://conode.example", roster.List[1].URL)
}

func TestReadGroupToml_Errors(t *testing.T) {
	_, err := ReadGroupToml(strings.NewReader(""))
	require.Error(t, err)

	bad := `[[servers]]
Address = "tls://127.0.0.1:7770"
Public = "not-hex"
`
	_, err = ReadGroupToml(strings.NewReader(bad))
	require.Error(t, err)
}
