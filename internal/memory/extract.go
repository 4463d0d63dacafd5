package memory

import (
	"context"
	"sort"

	"github.com/starford/nightsync/internal/evidence"
	"github.com/starford/nightsync/internal/models"
	"github.com/starford/nightsync/internal/parser"
)

// Index maps a normalized evidence path to the records citing it.
type Index map[string][]models.MemoryRef

// Paths returns the indexed paths in ascending order.
func (ix Index) Paths() []string {
	out := make([]string, 0, len(ix))
	for p := range ix {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// RefCount is the total number of (path, record) citations.
func (ix Index) RefCount() int {
	n := 0
	for _, refs := range ix {
		n += len(refs)
	}
	return n
}

// Extract scans every record of src for citations under prefix and returns
// the reverse index together with the number of records scanned. A record
// citing the same path several times contributes one reference to it.
func Extract(ctx context.Context, src Source, prefix string, filter evidence.Filter) (Index, int, error) {
	cites := parser.NewCitations(prefix)
	index := make(Index)
	scanned := 0

	err := src.Each(ctx, func(_ int, rec models.MemoryRecord) error {
		scanned++
		var (
			ref  models.MemoryRef
			seen map[string]struct{}
		)
		for raw := range cites.All(rec.Content) {
			path, ok := evidence.Normalize(raw, prefix)
			if !ok || !filter.Includes(path) {
				continue
			}
			if seen == nil {
				seen = make(map[string]struct{})
				ref = rec.Ref()
			}
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			index[path] = append(index[path], ref)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return index, scanned, nil
}
