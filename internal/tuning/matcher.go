package tuning

import "math"

// Cents returns the signed distance from ref to hz in cents. It is positive
// when hz is sharp of ref.
func Cents(hz, ref float64) float64 {
	return 1200 * math.Log2(hz/ref)
}

// Closest returns the catalog entry nearest to hz by musical distance. On a
// tie the entry listed first wins. It panics on an empty catalog.
func Closest(hz float64, catalog Catalog) ReferenceString {
	if catalog.Len() == 0 {
		panic(ErrEmptyCatalog)
	}

	best := catalog.strings[0]
	bestDistance := math.Abs(Cents(hz, best.FrequencyHz))
	for _, s := range catalog.strings[1:] {
		if d := math.Abs(Cents(hz, s.FrequencyHz)); d < bestDistance {
			best, bestDistance = s, d
		}
	}
	return best
}
