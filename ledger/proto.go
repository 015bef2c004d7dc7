package ledger

import (
	"go.dedis.ch/byzclient/darc"
)

// GetDarc asks the ledger service for the latest version of the darc
// chain with the given base ID.
type GetDarc struct {
	BaseID darc.ID
}

// GetDarcReply carries the requested darc.
type GetDarcReply struct {
	Darc *darc.Darc
}
