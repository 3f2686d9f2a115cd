package recon

import (
	"strconv"
	"strings"
)

// NormalizeKey is the join key used on both sides: surrounding whitespace
// removed and case folded.
func NormalizeKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// CompareKeys orders keys that parse as integers numerically and ahead of
// every other key; the rest compare lexically.
func CompareKeys(a, b string) int {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		if ai != bi {
			if ai < bi {
				return -1
			}
			return 1
		}
		// "01" and "1" are different keys
		return strings.Compare(a, b)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(a, b)
}
