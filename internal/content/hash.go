package content

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// HashBytes computes the hex sha256 digest of data.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashUnits computes a deterministic digest over a whole content set.
// Units are hashed in sorted path order so the result is independent of
// discovery order. An empty set has a fixed, known digest.
func HashUnits(units []ContentUnit) string {
	if len(units) == 0 {
		h := sha256.Sum256([]byte("empty-content-set"))
		return hex.EncodeToString(h[:])
	}

	sorted := make([]ContentUnit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RelativePath < sorted[j].RelativePath
	})

	h := sha256.New()
	for _, u := range sorted {
		fmt.Fprintf(h, "%s|%s\n", u.RelativePath, u.Hash)
	}
	return hex.EncodeToString(h.Sum(nil))
}
