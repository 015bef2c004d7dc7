// Package darcstore caches fetched darcs on disk. Rule matching may
// need to resolve long delegation chains, and the darcs of a chain are
// immutable per version, so keeping them locally saves round trips to
// the conodes. The store keeps every version it has seen and a pointer
// to the latest version of each chain.
package darcstore

import (
	"context"

	"go.dedis.ch/byzclient/darc"
	bbolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

var bucketDarcs = []byte("darcs")
var bucketChains = []byte("chains")

// ErrNotFound is returned when the store has no darc for the given ID.
var ErrNotFound = xerrors.New("no such darc")

// Store is a bbolt-backed collection of darcs, keyed by darc ID, with
// a latest-version index per base ID.
type Store struct {
	db *bbolt.DB
}

// NewStore opens the database at the given path, creating it if
// needed.
func NewStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, xerrors.Errorf("opening %s: %v", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketDarcs); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketChains)
		return err
	})
	if err != nil {
		db.Close()
		return nil, xerrors.Errorf("creating buckets: %v", err)
	}
	return &Store{db: db}, nil
}

// Put stores the darc and, if it is the highest version seen for its
// chain, updates the latest-version pointer of the chain.
func (s *Store) Put(d *darc.Darc) error {
	buf, err := d.ToProto()
	if err != nil {
		return err
	}
	id := d.GetID()
	base := d.GetBaseID()
	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketDarcs).Put(id, buf); err != nil {
			return err
		}
		chains := tx.Bucket(bucketChains)
		if cur := chains.Get(base); cur != nil {
			curBuf := tx.Bucket(bucketDarcs).Get(cur)
			if curBuf != nil {
				curDarc, err := darc.NewDarcFromProto(curBuf)
				if err == nil && curDarc.Version >= d.Version {
					return nil
				}
			}
		}
		return chains.Put(base, id)
	})
	if err != nil {
		return xerrors.Errorf("storing darc %x: %v", id, err)
	}
	return nil
}

// GetByID returns the darc with the exact given ID, or ErrNotFound.
func (s *Store) GetByID(id darc.ID) (*darc.Darc, error) {
	var d *darc.Darc
	err := s.db.View(func(tx *bbolt.Tx) error {
		buf := tx.Bucket(bucketDarcs).Get(id)
		if buf == nil {
			return ErrNotFound
		}
		var err error
		d, err = darc.NewDarcFromProto(buf)
		return err
	})
	if err != nil {
		return nil, xerrors.Errorf("getting darc %x: %w", id, err)
	}
	return d, nil
}

// Latest returns the highest stored version of the chain with the
// given base ID, or ErrNotFound.
func (s *Store) Latest(baseID darc.ID) (*darc.Darc, error) {
	var d *darc.Darc
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketChains).Get(baseID)
		if id == nil {
			return ErrNotFound
		}
		buf := tx.Bucket(bucketDarcs).Get(id)
		if buf == nil {
			return ErrNotFound
		}
		var err error
		d, err = darc.NewDarcFromProto(buf)
		return err
	})
	if err != nil {
		return nil, xerrors.Errorf("getting chain %x: %w", baseID, err)
	}
	return d, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Resolver returns a darc.GetDarc that answers from the store and
// falls back to fetch for unknown chains, caching what it fetched. A
// nil fetch makes the resolver local-only.
func (s *Store) Resolver(fetch darc.GetDarc) darc.GetDarc {
	return func(ctx context.Context, baseID darc.ID) (*darc.Darc, error) {
		d, err := s.Latest(baseID)
		if err == nil {
			return d, nil
		}
		if !xerrors.Is(err, ErrNotFound) || fetch == nil {
			return nil, err
		}
		d, err = fetch(ctx, baseID)
		if err != nil {
			return nil, err
		}
		if err := s.Put(d); err != nil {
			return nil, xerrors.Errorf("caching darc: %v", err)
		}
		return d, nil
	}
}
