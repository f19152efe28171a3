package store

import (
	"context"
	"fmt"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// putter is the raw-write hook migration uses to copy records verbatim,
// provenance bits included. Both backends implement it.
type putter interface {
	put(rec types.Record) error
}

// Migrate copies every record from src to dst, overwriting dst records
// under the same (name, type). Returns the number of records copied.
// User-edit flags and timestamps are carried over unchanged, which is why
// this bypasses MergeUpsert.
func Migrate(ctx context.Context, src, dst Store) (int, error) {
	target, ok := dst.(putter)
	if !ok {
		return 0, fmt.Errorf("store: %T does not support migration", dst)
	}

	recs, err := src.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading source store: %w", err)
	}

	for i := range recs {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := target.put(recs[i]); err != nil {
			return i, fmt.Errorf("migrating %s: %w", recs[i].Key(), err)
		}
	}

	return len(recs), nil
}
