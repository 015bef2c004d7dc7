package darc

import (
	"crypto/sha256"

	"golang.org/x/xerrors"
)

// Hash computes the digest of the request. The signatures are not
// included, they sign this digest.
func (r *Request) Hash() []byte {
	return r.innerRequest.Hash()
}

func (r innerRequest) Hash() []byte {
	h := sha256.New()
	h.Write(r.BaseID)
	h.Write([]byte(r.Action))
	h.Write(r.Msg)
	for _, i := range r.Identities {
		h.Write([]byte(i.String()))
	}
	return h.Sum(nil)
}

// GetIdentityStrings returns the identity strings of all signers,
// which is what the expression evaluator works on.
func (r *Request) GetIdentityStrings() []string {
	res := make([]string, len(r.Identities))
	for i, id := range r.Identities {
		res[i] = id.String()
	}
	return res
}

// InitRequest initialises a request from its raw fields. There is no
// guarantee that the result is valid, see InitAndSignRequest for
// creating a verifiable one.
func InitRequest(baseID ID, action Action, msg []byte, ids []Identity,
	sigs [][]byte) Request {
	return Request{
		innerRequest{
			BaseID:     baseID,
			Action:     action,
			Msg:        msg,
			Identities: ids,
		},
		sigs,
	}
}

// InitAndSignRequest creates a new request signed by all the given
// signers, ready to be checked against a darc with CheckRequest.
func InitAndSignRequest(baseID ID, action Action, msg []byte,
	signers ...Signer) (*Request, error) {
	if len(signers) == 0 {
		return nil, xerrors.New("there are no signers")
	}
	signerIDs := make([]Identity, len(signers))
	for i, s := range signers {
		signerIDs[i] = s.Identity()
	}
	inner := innerRequest{
		BaseID:     baseID,
		Action:     action,
		Msg:        msg,
		Identities: signerIDs,
	}
	digest := inner.Hash()
	sigs := make([][]byte, len(signers))
	for i, s := range signers {
		var err error
		sigs[i], err = s.Sign(digest)
		if err != nil {
			return nil, xerrors.Errorf("signing request: %v", err)
		}
	}
	return &Request{
		inner,
		sigs,
	}, nil
}
