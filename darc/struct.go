package darc

import (
	"context"

	"go.dedis.ch/byzclient/darc/expression"
	"go.dedis.ch/kyber/v3"
)

// ID is the identity of a Darc - the sha256 over its invariant fields
// [Version, Description, BaseID, PrevID, Rules]. An evolving darc
// changes its ID with every version.
type ID []byte

// Action is a string that is associated with an expression. The
// application typically defines its own actions, but two actions exist
// in all darcs: "_evolve" and "_sign".
type Action string

// Rule binds one action to the expression that protects it.
type Rule struct {
	Action Action
	Expr   expression.Expr
}

// Rules is the ordered list of rules of a darc. The order is part of
// the darc ID and must be kept stable, which is why this is a list and
// not a map. Actions are unique within the list.
type Rules struct {
	List []Rule
}

// Darc is a distributed access right control. It describes who is
// allowed to perform which actions, either directly through public
// keys or by delegating to other darcs. A darc is immutable once its
// ID has been used - changes are made by evolving it to a new version.
type Darc struct {
	Version     uint64
	Description []byte
	// BaseID is empty for a genesis darc (version 0), where the darc
	// ID itself is the base of the chain.
	BaseID ID
	// PrevID is the ID of the previous version, empty for version 0.
	PrevID ID
	Rules  Rules
}

// Identity is a generic structure that can hold different types of
// identities. Exactly one of the fields is non-nil.
type Identity struct {
	// Darc identity delegates to the "_sign" rule of another darc.
	Darc *IdentityDarc
	// Ed25519 identity holds a public key.
	Ed25519 *IdentityEd25519
}

// IdentityDarc points to a darc chain by its base ID. It is satisfied
// by whoever satisfies the "_sign" rule of that darc.
type IdentityDarc struct {
	ID ID
}

// IdentityEd25519 holds a public Ed25519 point.
type IdentityEd25519 struct {
	Point kyber.Point
}

// Signer is a generic structure that can hold different types of
// signers. Currently only Ed25519 keys can sign.
type Signer struct {
	Ed25519 *SignerEd25519
}

// SignerEd25519 holds the public and private key of an Ed25519 signer.
type SignerEd25519 struct {
	Point  kyber.Point
	Secret kyber.Scalar
}

// Request is a message that can be verified against a darc: the
// signers ask to perform Action on the instance described by Msg.
type Request struct {
	innerRequest
	Signatures [][]byte
}

type innerRequest struct {
	BaseID     ID
	Action     Action
	Msg        []byte
	Identities []Identity
}

// GetDarc is the callback used to resolve darc identities during rule
// matching and request verification. It returns the latest darc of the
// chain with the given base ID. The SDK never fetches darcs on its
// own, the caller decides where they come from (ledger, cache, ...).
type GetDarc func(ctx context.Context, baseID ID) (*Darc, error)
