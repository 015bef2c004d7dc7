package darcstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/byzclient/darc"
	"go.dedis.ch/byzclient/darc/expression"
	"golang.org/x/xerrors"
)

func newTestStore(t *testing.T) *Store {
	s, err := NewStore(filepath.Join(t.TempDir(), "darcs.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func newTestDarc(desc string) *darc.Darc {
	id := darc.NewSignerEd25519(nil, nil).Identity()
	return darc.NewDarc(darc.InitRules([]darc.Identity{id}, []darc.Identity{id}),
		[]byte(desc))
}

func TestStore_PutGet(t *testing.T) {
	s := newTestStore(t)
	d := newTestDarc("one")

	require.NoError(t, s.Put(d))
	got, err := s.GetByID(d.GetID())
	require.NoError(t, err)
	require.True(t, d.Equal(got))

	_, err = s.GetByID(darc.ID([]byte{9, 9, 9}))
	require.True(t, xerrors.Is(err, ErrNotFound))
}

func TestStore_Latest(t *testing.T) {
	s := newTestStore(t)
	d := newTestDarc("chain")
	d2 := d.Evolve()
	require.NoError(t, d2.Rules.UpdateSign(
		expression.Expr(darc.NewSignerEd25519(nil, nil).Identity().String())))

	require.NoError(t, s.Put(d))
	require.NoError(t, s.Put(d2))

	got, err := s.Latest(d.GetBaseID())
	require.NoError(t, err)
	require.True(t, d2.Equal(got))

	// storing an older version again must not move the pointer back
	require.NoError(t, s.Put(d))
	got, err = s.Latest(d.GetBaseID())
	require.NoError(t, err)
	require.True(t, d2.Equal(got))

	// both versions stay retrievable by exact ID
	got, err = s.GetByID(d.GetID())
	require.NoError(t, err)
	require.True(t, d.Equal(got))
}

func TestStore_Resolver(t *testing.T) {
	s := newTestStore(t)
	d := newTestDarc("cached")
	fetches := 0
	fetch := func(ctx context.Context, baseID darc.ID) (*darc.Darc, error) {
		fetches++
		if d.GetBaseID().Equal(baseID) {
			return d, nil
		}
		return nil, xerrors.Errorf("no darc %x", baseID)
	}
	resolver := s.Resolver(fetch)
	ctx := context.Background()

	got, err := resolver(ctx, d.GetBaseID())
	require.NoError(t, err)
	require.True(t, d.Equal(got))
	require.Equal(t, 1, fetches)

	// the second resolution is served from the store
	got, err = resolver(ctx, d.GetBaseID())
	require.NoError(t, err)
	require.True(t, d.Equal(got))
	require.Equal(t, 1, fetches)

	// fetch errors propagate
	_, err = resolver(ctx, darc.ID([]byte{1}))
	require.Error(t, err)

	// a local-only resolver reports unknown chains
	local := s.Resolver(nil)
	_, err = local(ctx, darc.ID([]byte{1}))
	require.True(t, xerrors.Is(err, ErrNotFound))
}
