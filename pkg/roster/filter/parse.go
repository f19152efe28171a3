package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// ErrInvalidQuery indicates that a query term could not be parsed.
var ErrInvalidQuery = errors.New("invalid query term")

// Parse parses a query expression into a Filter. Expressions are
// whitespace-separated terms:
//   - "type:<brew|cask|mas|tap>" restricts the package type; repeating
//     the key widens the set.
//   - "edited:<true|false>" restricts by the user-edited flag.
//   - Anything else is a free-text term matched against name and
//     description, case-insensitively. All terms must match.
//
// An empty expression yields a Filter that matches everything.
//
// Returns ErrInvalidQuery for an unknown type or a malformed boolean.
func Parse(q string) (*Filter, error) {
	f := &Filter{}
	for _, tok := range strings.Fields(q) {
		lower := strings.ToLower(tok)
		switch {
		case strings.HasPrefix(lower, "type:"):
			value := strings.TrimPrefix(lower, "type:")
			pkgType, err := types.ParseType(value)
			if err != nil {
				return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidQuery, value)
			}
			f.Types = append(f.Types, pkgType)

		case strings.HasPrefix(lower, "edited:"):
			value := strings.TrimPrefix(lower, "edited:")
			edited, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%w: edited wants true or false, got %q", ErrInvalidQuery, value)
			}
			f.Edited = &edited

		default:
			f.Terms = append(f.Terms, lower)
		}
	}
	return f, nil
}
