package quench

import (
	"math"

	"github.com/chrissnell/quenchfinder/internal/galaxy"
)

// rejuvenationTolerance bounds how far the relative mass growth at the upturn may
// stray from the growth measured over the surrounding snapshots
const rejuvenationTolerance = 0.25

// IsGenuineRejuvenation reports whether the mass growth around snapshot j is smooth
// enough for an sSFR upturn at j to count as a rejuvenation. It reads snapshots j-2
// through j+1 and panics if they are not all present.
func IsGenuineRejuvenation(s *galaxy.Series, j int) bool {
	if !rejuvenationWindowOK(s, j) {
		panic("rejuvenation window out of range")
	}
	m := s.Mass
	diff := (m[j] - m[j-1]) / m[j-1]
	diff2 := math.Abs((m[j+1] - m[j-1]) / m[j-1])
	diff3 := math.Abs((m[j+1] - m[j-2]) / m[j-2])
	return math.Abs(diff-diff2) < rejuvenationTolerance && math.Abs(diff-diff3) < rejuvenationTolerance
}

func rejuvenationWindowOK(s *galaxy.Series, j int) bool {
	return j >= 2 && j+1 < len(s.Mass)
}
