package profiles

import (
	"sort"

	"github.com/menta2k/marker-annotator/pkg/types"
)

// DefaultTopK is how many profiles are annotated per image by default.
const DefaultTopK = 3

// Ranking is the ranked, resolvable subset of one image's detections.
type Ranking struct {
	Profiles []types.RankedProfile
	// Unknown lists detected IDs the store could not resolve, in detection order.
	Unknown []string
	// Truncated counts resolvable profiles cut by topK.
	Truncated int
}

// Rank resolves each detection against the store and sorts the hits by
// relevance, highest first, breaking ties by detection order. Unknown IDs
// are excluded and reported. Only the first detection of a repeated ID is
// kept. topK <= 0 keeps every hit.
func Rank(detections []types.Detection, store Store, topK int) Ranking {
	var r Ranking
	seen := make(map[string]bool, len(detections))
	for i, d := range detections {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		p, ok := store.Lookup(d.ID)
		if !ok {
			r.Unknown = append(r.Unknown, d.ID)
			continue
		}
		r.Profiles = append(r.Profiles, types.RankedProfile{Profile: p, Marker: d.Box, Order: i})
	}

	sort.SliceStable(r.Profiles, func(i, j int) bool {
		a, b := r.Profiles[i], r.Profiles[j]
		if a.Relevance != b.Relevance {
			return a.Relevance > b.Relevance
		}
		return a.Order < b.Order
	})

	if topK > 0 && len(r.Profiles) > topK {
		r.Truncated = len(r.Profiles) - topK
		r.Profiles = r.Profiles[:topK]
	}
	return r
}
