package synth

import (
	"math"

	"github.com/azybler/route_impact/pkg/geo"
)

// resample drops consecutive duplicate stops and, when spacing > 0, inserts
// evenly spaced stops into every segment longer than spacing so that no gap
// exceeds it. Segments of length L get ceil(L/spacing)-1 new stops.
func resample(stops []geo.Point, spacing float64) []geo.Point {
	out := make([]geo.Point, 0, len(stops))
	for _, p := range stops {
		if len(out) == 0 {
			out = append(out, p)
			continue
		}
		prev := out[len(out)-1]
		d := prev.DistanceTo(p)
		if d == 0 {
			continue
		}
		if spacing > 0 && d > spacing {
			k := int(math.Ceil(d/spacing)) - 1
			for i := 1; i <= k; i++ {
				out = append(out, geo.Interpolate(prev, p, float64(i)/float64(k+1)))
			}
		}
		out = append(out, p)
	}
	return out
}
