package manifest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// Producer turns resolved manifest sources into the candidate set a
// regeneration pass merges into the store. It implements the cycle's
// producer contract.
type Producer struct {
	sources Sources
}

// NewProducer returns a producer over the given sources.
func NewProducer(sources Sources) *Producer {
	return &Producer{sources: sources}
}

// TrackedPaths returns the manifest files whose content the cycle
// fingerprints for change detection.
func (p *Producer) TrackedPaths() []string {
	return p.sources.Paths()
}

// Produce parses every source into candidates, sorted by lowercased name
// with the canonical type order as tiebreak. A source that cannot be read
// fails the whole pass; candidates are all-or-nothing.
func (p *Producer) Produce(ctx context.Context) ([]types.Candidate, error) {
	var all []types.Candidate

	for _, typ := range types.AllTypes() {
		path, ok := p.sources[typ]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cands, err := ParseFile(path, typ)
		if err != nil {
			return nil, fmt.Errorf("producing %s candidates: %w", typ, err)
		}
		all = append(all, cands...)
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := &all[i], &all[j]
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
		return a.Type.Order() < b.Type.Order()
	})

	return all, nil
}
