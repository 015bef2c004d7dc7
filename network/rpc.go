package network

import (
	"context"
	"reflect"

	"go.dedis.ch/byzclient"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/protobuf"
	"golang.org/x/xerrors"
)

// Call performs one request/reply round trip on the connection: req is
// protobuf-encoded and sent as a frame, and the single reply frame is
// decoded into reply. A nil reply discards the answer. A frame that
// does not decode as the expected type is a distinct error, never
// silently coerced.
func Call(ctx context.Context, c Conn, req, reply interface{}) error {
	buf, err := protobuf.Encode(req)
	if err != nil {
		return xerrors.Errorf("encoding request: %v", err)
	}
	resp, err := c.Exchange(ctx, buf)
	if err != nil {
		return xerrors.Errorf("exchanging with conode: %w", err)
	}
	if reply == nil {
		return nil
	}
	err = protobuf.DecodeWithConstructors(resp, reply,
		defaultConstructors(byzclient.Suite))
	if err != nil {
		return xerrors.Errorf("decoding reply: %v", err)
	}
	return nil
}

// defaultConstructors gives protobuf the constructors it needs to
// decode points and scalars of the suite.
func defaultConstructors(suite suites.Suite) protobuf.Constructors {
	constructors := make(protobuf.Constructors)
	var point kyber.Point
	var secret kyber.Scalar
	constructors[reflect.TypeOf(&point).Elem()] = func() interface{} { return suite.Point() }
	constructors[reflect.TypeOf(&secret).Elem()] = func() interface{} { return suite.Scalar() }
	return constructors
}
