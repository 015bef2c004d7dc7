package status

import (
	"go.dedis.ch/byzclient/network"
)

// Status is one named group of key/value pairs reported by a conode,
// e.g. the traffic counters of its router.
type Status struct {
	Field map[string]string
}

// Request is what the status service expects from clients.
type Request struct {
}

// Response is what the status service replies.
type Response struct {
	Status         map[string]*Status
	ServerIdentity *network.ServerIdentity
}
