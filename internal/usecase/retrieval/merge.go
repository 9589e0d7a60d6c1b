package retrieval

import (
	"sort"

	"github.com/kailas-cloud/kbgate/internal/domain/caller"
	"github.com/kailas-cloud/kbgate/internal/domain/document"
)

// merge combines per-backend result lists into one ranked list:
// concatenate in backend order, deduplicate by id (first arrival wins),
// drop documents whose policy denies the caller, stable-sort by score
// descending, truncate to limit.
//
// Scores are NOT renormalized across backends; each backend's scale is
// kept as-is, a known ranking-quality tradeoff. The deny check here is
// defense in depth: the primary filter is allow-only and cannot express
// deny lists, so a denied caller can allow-match a document and still
// must not see it.
func merge(lists [][]document.Document, cl caller.Context, limit int) []document.Document {
	var total int
	for _, l := range lists {
		total += len(l)
	}

	seen := make(map[string]struct{}, total)
	out := make([]document.Document, 0, total)

	for _, list := range lists {
		for _, d := range list {
			if _, dup := seen[d.ID()]; dup {
				continue
			}
			seen[d.ID()] = struct{}{}

			if d.Policy().Denies(cl.UserID(), cl.Groups()) {
				continue
			}
			out = append(out, d)
		}
	}

	// Stable: equal scores keep arrival order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score() > out[j].Score()
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
