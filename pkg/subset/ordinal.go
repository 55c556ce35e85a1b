package subset

import (
	"fmt"
	"strconv"
	"strings"
)

// subsetOrdinal parses a subset ID as a non-negative integer for sort
// purposes. IDs that aren't plain integers (hash-like labels, for example)
// report ok=false and sort after every numeric ID.
func subsetOrdinal(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}

// ParseWorkerID derives a worker's ID from its subset ID, handling both a
// plain numeric ID and the "subset-X" form. It returns an error when neither
// form parses, matching the fatal failure the reference implementation
// raises for an unparseable subset ID.
func ParseWorkerID(subsetID string) (int, error) {
	raw := subsetID
	if rest, ok := strings.CutPrefix(subsetID, "subset-"); ok {
		raw = rest
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid subset ID format: %q, expected either a number or \"subset-X\" format", subsetID)
	}

	return n, nil
}
