package subset

import "github.com/alicel/migsim/pkg/work"

// Subset is one migration subset discovered under metadata/subsets/. Items
// holds whatever lines the file actually contained; it is empty for a
// subset file with no item lines. WorkItems resolves the fallback for that
// case, and is what scheduling code should call.
type Subset struct {
	MigrationID string
	Label       string
	SubsetID    string
	Tier        Tier
	NumSSTables int
	DataSize    int64
	Path        string
	Items       []work.Item
}

// syntheticKey is the key assigned to the single fallback item synthesized
// for an empty subset file.
const syntheticKey = "SST0"

// WorkItems returns the items a scheduler should dispatch for this subset:
// the parsed items when the file had content, or a single synthetic item
// sized to the subset's declared DataSize when it was empty.
func (s Subset) WorkItems() []work.Item {
	if len(s.Items) > 0 {
		return s.Items
	}

	return []work.Item{{Key: syntheticKey, Size: s.DataSize}}
}

// ActualItemCount reports how many item lines were parsed, which may
// disagree with NumSSTables if the subset file and its path metadata drifted
// out of sync.
func (s Subset) ActualItemCount() int {
	return len(s.Items)
}

// Less reports whether s sorts before other under the canonical ordering:
// tier priority first, then ascending numeric subset ID, with non-numeric
// IDs sorted after all numeric ones.
func Less(s, other Subset) bool {
	if s.Tier.Priority() != other.Tier.Priority() {
		return s.Tier.Priority() < other.Tier.Priority()
	}

	sOrd, sOK := subsetOrdinal(s.SubsetID)
	oOrd, oOK := subsetOrdinal(other.SubsetID)

	switch {
	case sOK && oOK:
		if sOrd != oOrd {
			return sOrd < oOrd
		}

		return s.SubsetID < other.SubsetID
	case sOK && !oOK:
		return true
	case !sOK && oOK:
		return false
	default:
		return s.SubsetID < other.SubsetID
	}
}
