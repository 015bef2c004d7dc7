// Package byzclient is a client SDK for talking to a cothority ledger.
// It holds the darc access-control model, the websocket connection layer
// used to reach the conodes, and thin RPC clients built on top of both.
package byzclient

import (
	"go.dedis.ch/kyber/v3/suites"
)

// Suite is the cryptographic suite used by all signatures and keys in
// this module. The conodes run the same suite.
var Suite = suites.MustFind("Ed25519")
