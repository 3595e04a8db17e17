// Package state persists vault snapshots in a badger key-value store,
// one keyed table (prefix) per entity family, CBOR-encoded records.
package state

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/fxamacker/cbor/v2"

	"github.com/aoakande/gene-vault-stacks/pkg/stacks"
	"github.com/aoakande/gene-vault-stacks/pkg/vault"
)

var (
	prefixSegment = []byte("seg/")
	prefixGrant   = []byte("grant/")
	prefixIndex   = []byte("idx/")
	prefixQuery   = []byte("query/")
	prefixPayment = []byte("pay/")
	prefixRevenue = []byte("rev/")
	prefixImpact  = []byte("impact/")
	keyStats      = []byte("stats")
	keyHeight     = []byte("height")
)

type Store struct {
	db *badger.DB
}

func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the full snapshot. State is append-mostly (no table ever
// drops a key), so upserting every record is sufficient.
func (s *Store) Save(snap vault.Snapshot) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	put := func(prefix []byte, id string, val interface{}) error {
		buf, err := cbor.Marshal(val)
		if err != nil {
			return err
		}
		return wb.Set(append(append([]byte{}, prefix...), id...), buf)
	}

	for id, rec := range snap.Segments {
		if err := put(prefixSegment, string(id), rec); err != nil {
			return err
		}
	}
	for id, rec := range snap.Grants {
		if err := put(prefixGrant, string(id), rec); err != nil {
			return err
		}
	}
	for owner, rec := range snap.ProviderIndex {
		if err := put(prefixIndex, string(owner), rec); err != nil {
			return err
		}
	}
	for id, rec := range snap.Queries {
		if err := put(prefixQuery, string(id), rec); err != nil {
			return err
		}
	}
	for id, rec := range snap.Payments {
		if err := put(prefixPayment, string(id), rec); err != nil {
			return err
		}
	}
	for acct, rec := range snap.Revenue {
		if err := put(prefixRevenue, string(acct), rec); err != nil {
			return err
		}
	}
	for id, rec := range snap.Impacts {
		if err := put(prefixImpact, string(id), rec); err != nil {
			return err
		}
	}
	if err := put(nil, string(keyStats), snap.Stats); err != nil {
		return err
	}
	return wb.Flush()
}

// Load reads the snapshot back. An empty store yields an empty
// snapshot, not an error.
func (s *Store) Load() (vault.Snapshot, error) {
	snap := vault.Snapshot{
		Segments:      make(map[vault.SegmentID]vault.Segment),
		Grants:        make(map[vault.SegmentID]map[stacks.Principal]vault.AccessGrant),
		ProviderIndex: make(map[stacks.Principal][]vault.SegmentID),
		Queries:       make(map[vault.QueryID]vault.ResearchQuery),
		Payments:      make(map[vault.PaymentID]vault.Payment),
		Revenue:       make(map[stacks.Principal]vault.ProviderRevenue),
		Impacts:       make(map[vault.ResearchID]vault.ResearchImpact),
	}
	err := s.db.View(func(txn *badger.Txn) error {
		if err := scan(txn, prefixSegment, func(id string, buf []byte) error {
			var rec vault.Segment
			if err := cbor.Unmarshal(buf, &rec); err != nil {
				return err
			}
			snap.Segments[vault.SegmentID(id)] = rec
			return nil
		}); err != nil {
			return err
		}
		if err := scan(txn, prefixGrant, func(id string, buf []byte) error {
			var rec map[stacks.Principal]vault.AccessGrant
			if err := cbor.Unmarshal(buf, &rec); err != nil {
				return err
			}
			snap.Grants[vault.SegmentID(id)] = rec
			return nil
		}); err != nil {
			return err
		}
		if err := scan(txn, prefixIndex, func(id string, buf []byte) error {
			var rec []vault.SegmentID
			if err := cbor.Unmarshal(buf, &rec); err != nil {
				return err
			}
			snap.ProviderIndex[stacks.Principal(id)] = rec
			return nil
		}); err != nil {
			return err
		}
		if err := scan(txn, prefixQuery, func(id string, buf []byte) error {
			var rec vault.ResearchQuery
			if err := cbor.Unmarshal(buf, &rec); err != nil {
				return err
			}
			snap.Queries[vault.QueryID(id)] = rec
			return nil
		}); err != nil {
			return err
		}
		if err := scan(txn, prefixPayment, func(id string, buf []byte) error {
			var rec vault.Payment
			if err := cbor.Unmarshal(buf, &rec); err != nil {
				return err
			}
			snap.Payments[vault.PaymentID(id)] = rec
			return nil
		}); err != nil {
			return err
		}
		if err := scan(txn, prefixRevenue, func(id string, buf []byte) error {
			var rec vault.ProviderRevenue
			if err := cbor.Unmarshal(buf, &rec); err != nil {
				return err
			}
			snap.Revenue[stacks.Principal(id)] = rec
			return nil
		}); err != nil {
			return err
		}
		if err := scan(txn, prefixImpact, func(id string, buf []byte) error {
			var rec vault.ResearchImpact
			if err := cbor.Unmarshal(buf, &rec); err != nil {
				return err
			}
			snap.Impacts[vault.ResearchID(id)] = rec
			return nil
		}); err != nil {
			return err
		}

		item, err := txn.Get(keyStats)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		buf, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return cbor.Unmarshal(buf, &snap.Stats)
	})
	return snap, err
}

// SaveHeight records the chain height the snapshot was taken at, so a
// restarted node can fast-forward its chain before serving.
func (s *Store) SaveHeight(height int64) error {
	buf, err := cbor.Marshal(height)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyHeight, buf)
	})
}

func (s *Store) LoadHeight() (int64, error) {
	var height int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyHeight)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		buf, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return cbor.Unmarshal(buf, &height)
	})
	return height, err
}

func scan(txn *badger.Txn, prefix []byte, fn func(id string, buf []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		buf, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id := string(item.Key()[len(prefix):])
		if err := fn(id, buf); err != nil {
			return err
		}
	}
	return nil
}
