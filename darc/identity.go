package darc

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"go.dedis.ch/byzclient"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/util/encoding"
	"go.dedis.ch/kyber/v3/util/key"
	"golang.org/x/xerrors"
)

// NewIdentityDarc creates a darc identity pointing to the chain with
// the given base ID.
func NewIdentityDarc(id ID) Identity {
	return Identity{
		Darc: &IdentityDarc{
			ID: id,
		},
	}
}

// NewIdentityEd25519 creates an Ed25519 identity from a public point.
func NewIdentityEd25519(point kyber.Point) Identity {
	return Identity{
		Ed25519: &IdentityEd25519{
			Point: point,
		},
	}
}

// ParseIdentity returns the identity described by the given string,
// which must follow the "<type>:<hex>" format used in rule
// expressions. It is the inverse of Identity.String. Malformed key
// material is rejected here, not at verification time.
func ParseIdentity(in string) (Identity, error) {
	fields := strings.SplitN(in, ":", 2)
	if len(fields) != 2 {
		return Identity{}, xerrors.Errorf("invalid identity string: %s", in)
	}
	switch fields[0] {
	case "darc":
		id, err := hex.DecodeString(fields[1])
		if err != nil {
			return Identity{}, xerrors.Errorf("invalid darc identity %s: %v", in, err)
		}
		return NewIdentityDarc(id), nil
	case "ed25519":
		point, err := encoding.StringHexToPoint(byzclient.Suite, fields[1])
		if err != nil {
			return Identity{}, xerrors.Errorf("invalid ed25519 point %s: %v", in, err)
		}
		return NewIdentityEd25519(point), nil
	default:
		return Identity{}, xerrors.Errorf("unknown identity type: %s", fields[0])
	}
}

// Type returns an int indicating what type of identity this is. If all
// fields are nil, it returns -1.
func (id Identity) Type() int {
	switch {
	case id.Darc != nil:
		return 0
	case id.Ed25519 != nil:
		return 1
	}
	return -1
}

// TypeString returns the string of the type of the identity.
func (id Identity) TypeString() string {
	switch id.Type() {
	case 0:
		return "darc"
	case 1:
		return "ed25519"
	default:
		return "No identity"
	}
}

// String returns the canonical string representation of the identity.
// It is unique per identity and is what rule expressions are built
// from.
func (id Identity) String() string {
	switch id.Type() {
	case 0:
		return fmt.Sprintf("%s:%x", id.TypeString(), id.Darc.ID)
	case 1:
		return fmt.Sprintf("%s:%s", id.TypeString(), id.Ed25519.Point.String())
	default:
		return "No identity"
	}
}

// Equal first checks the type of the two identities, and if they
// match, it returns true if their data is the same.
func (id Identity) Equal(id2 *Identity) bool {
	if id.Type() != id2.Type() {
		return false
	}
	switch id.Type() {
	case 0:
		return id.Darc.Equal(id2.Darc)
	case 1:
		return id.Ed25519.Equal(id2.Ed25519)
	}
	return false
}

// Verify returns nil if the signature is correct, or an error if
// something went wrong. Darc identities cannot verify by themselves,
// they must be resolved through rule matching.
func (id Identity) Verify(msg, sig []byte) error {
	switch id.Type() {
	case 0:
		return xerrors.New("cannot verify a darc-signature")
	case 1:
		return id.Ed25519.Verify(msg, sig)
	default:
		return xerrors.New("unknown identity")
	}
}

// Equal returns true if both identities point to the same darc chain.
func (idd IdentityDarc) Equal(idd2 *IdentityDarc) bool {
	return bytes.Equal(idd.ID, idd2.ID)
}

// Equal returns true if both identities hold the same point.
func (ide IdentityEd25519) Equal(ide2 *IdentityEd25519) bool {
	return ide.Point.Equal(ide2.Point)
}

// Verify returns nil if sig is a valid schnorr signature on msg under
// the public point of the identity.
func (ide IdentityEd25519) Verify(msg, sig []byte) error {
	return schnorr.Verify(byzclient.Suite, ide.Point, msg, sig)
}

// NewSignerEd25519 initializes a new Ed25519 signer given a public and
// a private key. If any of the given values is nil, a new key pair is
// generated.
func NewSignerEd25519(point kyber.Point, secret kyber.Scalar) Signer {
	if point == nil || secret == nil {
		kp := key.NewKeyPair(byzclient.Suite)
		point, secret = kp.Public, kp.Private
	}
	return Signer{Ed25519: &SignerEd25519{
		Point:  point,
		Secret: secret,
	}}
}

// Type returns an integer representing the type of key held in the
// signer. It is compatible with Identity.Type. For an empty signer,
// -1 is returned.
func (s Signer) Type() int {
	if s.Ed25519 != nil {
		return 1
	}
	return -1
}

// Identity returns the identity of the signer.
func (s Signer) Identity() Identity {
	switch s.Type() {
	case 1:
		return NewIdentityEd25519(s.Ed25519.Point)
	default:
		return Identity{}
	}
}

// Sign returns a signature on the given message by the signer.
func (s Signer) Sign(msg []byte) ([]byte, error) {
	if msg == nil {
		return nil, xerrors.New("nothing to sign, message is empty")
	}
	switch s.Type() {
	case 1:
		return s.Ed25519.Sign(msg)
	default:
		return nil, xerrors.New("unknown signer type")
	}
}

// GetPrivate returns the private key, if one exists.
func (s Signer) GetPrivate() (kyber.Scalar, error) {
	if s.Ed25519 != nil {
		return s.Ed25519.Secret, nil
	}
	return nil, xerrors.New("signer lacks a private key")
}

// Sign creates a schnorr signature on the message.
func (eds SignerEd25519) Sign(msg []byte) ([]byte, error) {
	return schnorr.Sign(byzclient.Suite, eds.Secret, msg)
}
