package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// prefixRecord namespaces catalog records inside the database, leaving
// room for future key families.
const prefixRecord = "r:"

// keySeparator separates name from type in record keys. NUL cannot appear
// in a package name, so prefix scans on a name never bleed into another.
const keySeparator = '\x00'

// recordKey builds the key for one (name, type) record.
// Format: r:<name>\x00<type>
func recordKey(name string, typ types.PackageType) []byte {
	return []byte(prefixRecord + name + string(keySeparator) + string(typ))
}

// namePrefix returns the key prefix shared by every type of a name.
func namePrefix(name string) []byte {
	return []byte(prefixRecord + name + string(keySeparator))
}

// maxTxnRetries bounds retry of a read-write transaction that lost a
// serialization conflict to a concurrent writer.
const maxTxnRetries = 10

// BadgerStore is the embedded transactional backend. Records are stored as
// JSON values keyed by (name, type); Badger transactions give each upsert
// and edit its atomic unit, and conflicting writers to the same key retry.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens or creates a Badger-backed store at the given directory.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger's own logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening record store: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// update runs fn in a read-write transaction, retrying on serialization
// conflicts so that concurrent writers to the same name serialize instead
// of failing.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// Get returns the primary record for a name.
func (s *BadgerStore) Get(ctx context.Context, name string) (types.Record, error) {
	var recs []types.Record

	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		recs, err = recordsByName(txn, name)
		return err
	})
	if err != nil {
		return types.Record{}, err
	}
	if len(recs) == 0 {
		return types.Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return primaryRecord(recs), nil
}

// GetByKey returns the record with the given name and type.
func (s *BadgerStore) GetByKey(ctx context.Context, name string, typ types.PackageType) (types.Record, error) {
	var rec types.Record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(name, typ))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.Record{}, fmt.Errorf("%w: %s %s", ErrNotFound, typ, name)
	}
	if err != nil {
		return types.Record{}, err
	}

	return rec, nil
}

// List returns every record in canonical catalog order.
func (s *BadgerStore) List(ctx context.Context) ([]types.Record, error) {
	var recs []types.Record

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec types.Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	types.SortRecords(recs)
	return recs, nil
}

// MergeUpsert inserts or merges one candidate.
func (s *BadgerStore) MergeUpsert(ctx context.Context, cand types.Candidate) error {
	if err := cand.Validate(); err != nil {
		return err
	}

	key := recordKey(cand.Name, cand.Type)

	return s.update(func(txn *badger.Txn) error {
		var existing *types.Record

		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// First sighting, plain insert
		case err != nil:
			return err
		default:
			var rec types.Record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			existing = &rec
		}

		merged := mergeRecord(existing, cand)
		data, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// ApplyUserEdit edits every record with the given name in one transaction.
func (s *BadgerStore) ApplyUserEdit(ctx context.Context, name string, fields EditFields) (types.Record, error) {
	if fields.Empty() {
		return types.Record{}, ErrNoFields
	}

	now := time.Now().UTC()
	var edited []types.Record

	err := s.update(func(txn *badger.Txn) error {
		recs, err := recordsByName(txn, name)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}

		for i := range recs {
			applyEdit(&recs[i], fields, now)
			data, err := json.Marshal(recs[i])
			if err != nil {
				return err
			}
			if err := txn.Set(recordKey(recs[i].Name, recs[i].Type), data); err != nil {
				return err
			}
		}

		edited = recs
		return nil
	})
	if err != nil {
		return types.Record{}, err
	}

	return primaryRecord(edited), nil
}

// Count returns the number of records in the store.
func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}

// put writes a record verbatim, provenance bits included. Migration only.
func (s *BadgerStore) put(rec types.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.Name, rec.Type), data)
	})
}

// recordsByName collects every record sharing a name, one per type.
func recordsByName(txn *badger.Txn, name string) ([]types.Record, error) {
	var recs []types.Record

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := namePrefix(name)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var rec types.Record
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, nil
}
