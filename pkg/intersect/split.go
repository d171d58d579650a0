package intersect

import (
	"slices"

	"github.com/chazu/plinth/pkg/curve"
)

// Split cuts every curve at the intersection parameters recorded for it.
// Curves without interior parameters are passed through unchanged.
func Split(curves []curve.Curve, infos []Info, opts Options) []curve.Curve {
	frags, _ := SplitWithSources(curves, infos, opts)
	return frags
}

// SplitWithSources is Split that also returns, for every fragment, the
// index of the curve it was cut from.
func SplitWithSources(curves []curve.Curve, infos []Info, opts Options) ([]curve.Curve, []int) {
	opts = opts.withDefaults()
	params := make(map[int][]float64)
	for _, in := range infos {
		if !validIndex(in.Curve1Index, curves) || !validIndex(in.Curve2Index, curves) {
			opts.Logger.Warn("split: intersection references a missing curve",
				"curve1", in.Curve1Index, "curve2", in.Curve2Index, "curves", len(curves))
			continue
		}
		params[in.Curve1Index] = append(params[in.Curve1Index], in.Parameter1)
		params[in.Curve2Index] = append(params[in.Curve2Index], in.Parameter2)
	}

	var frags []curve.Curve
	var sources []int
	for i, c := range curves {
		if c == nil {
			continue
		}
		ts := params[i]
		slices.Sort(ts)
		d := c.Domain()
		ptol := c.ParamTolerance(opts.Tolerance)

		prev := d.Lo
		for _, t := range ts {
			if t <= d.Lo+ptol || t >= d.Hi-ptol || t-prev <= ptol {
				continue
			}
			if f, err := c.Trim(prev, t); err != nil {
				opts.Logger.Warn("split: dropping fragment", "curve", i, "from", prev, "to", t, "err", err)
			} else {
				frags, sources = append(frags, f), append(sources, i)
			}
			prev = t
		}
		if prev == d.Lo {
			frags, sources = append(frags, c), append(sources, i)
			continue
		}
		if d.Hi-prev <= ptol {
			continue
		}
		if f, err := c.Trim(prev, d.Hi); err != nil {
			opts.Logger.Warn("split: dropping fragment", "curve", i, "from", prev, "to", d.Hi, "err", err)
		} else {
			frags, sources = append(frags, f), append(sources, i)
		}
	}
	return frags, sources
}

func validIndex(i int, curves []curve.Curve) bool {
	return i >= 0 && i < len(curves) && curves[i] != nil
}
