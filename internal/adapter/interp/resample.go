package interp

import (
	"fmt"
	"math"

	"go.ngs.io/rasterwin/internal/domain"
)

// Resample maps a srcW x srcH row-major block onto a dstW x dstH block.
//
// Equal sizes return a copy and ignore alg. Otherwise alg must be one of Nearest, Bilinear,
// Average, Min, Max or Mode; NoResampling fails with domain.ErrMissingResampleAlgorithm.
func Resample(src []float64, srcW, srcH, dstW, dstH int, alg domain.Resampling) ([]float64, error) {
	if srcW < 1 || srcH < 1 || dstW < 1 || dstH < 1 {
		return nil, fmt.Errorf("%w: cannot resample %dx%d to %dx%d", domain.ErrInvalidWindow, srcW, srcH, dstW, dstH)
	}
	if len(src) != srcW*srcH {
		return nil, &domain.ShapeMismatchError{Expected: srcW * srcH, Actual: len(src)}
	}

	if srcW == dstW && srcH == dstH {
		out := make([]float64, len(src))
		copy(out, src)
		return out, nil
	}

	switch alg {
	case domain.NoResampling:
		return nil, domain.ErrMissingResampleAlgorithm
	case domain.Nearest:
		return nearest(src, srcW, srcH, dstW, dstH), nil
	case domain.Bilinear:
		return bilinear(src, srcW, srcH, dstW, dstH)
	case domain.Average, domain.Min, domain.Max, domain.Mode:
		return aggregate(src, srcW, srcH, dstW, dstH, alg), nil
	default:
		return nil, fmt.Errorf("%w: %s is not available for this source", domain.ErrUnsupportedResampling, alg)
	}
}

func nearest(src []float64, srcW, srcH, dstW, dstH int) []float64 {
	cols := make([]int, dstW)
	for dx := range cols {
		cols[dx] = nearestIndex(dx, srcW, dstW)
	}

	out := make([]float64, dstW*dstH)
	for dy := 0; dy < dstH; dy++ {
		sy := nearestIndex(dy, srcH, dstH)
		row := src[sy*srcW : (sy+1)*srcW]
		for dx, sx := range cols {
			out[dy*dstW+dx] = row[sx]
		}
	}
	return out
}

func nearestIndex(d, srcN, dstN int) int {
	i := int((float64(d) + 0.5) * float64(srcN) / float64(dstN))
	if i >= srcN {
		i = srcN - 1
	}
	return i
}

func bilinear(src []float64, srcW, srcH, dstW, dstH int) ([]float64, error) {
	grid := Grid{Width: srcW, Height: srcH, Values: src}
	sx := float64(srcW) / float64(dstW)
	sy := float64(srcH) / float64(dstH)

	out := make([]float64, dstW*dstH)
	for dy := 0; dy < dstH; dy++ {
		y := (float64(dy)+0.5)*sy - 0.5
		for dx := 0; dx < dstW; dx++ {
			x := (float64(dx)+0.5)*sx - 0.5
			v, err := grid.InterpolateAt(x, y)
			if err != nil {
				return nil, err
			}
			out[dy*dstW+dx] = v
		}
	}
	return out, nil
}

// span is the run of source pixels covered by one destination pixel along an axis,
// with the overlap fraction of each.
type span struct {
	start   int
	weights []float64
}

func footprints(srcN, dstN int) []span {
	scale := float64(srcN) / float64(dstN)
	spans := make([]span, dstN)
	for d := range spans {
		lo := float64(d) * scale
		hi := float64(d+1) * scale
		first := int(math.Floor(lo))
		last := min(int(math.Ceil(hi))-1, srcN-1)
		s := span{start: first}
		for i := first; i <= last; i++ {
			w := math.Min(hi, float64(i+1)) - math.Max(lo, float64(i))
			if w <= 0 {
				w = 0
			}
			s.weights = append(s.weights, w)
		}
		spans[d] = s
	}
	return spans
}

func aggregate(src []float64, srcW, srcH, dstW, dstH int, alg domain.Resampling) []float64 {
	xs := footprints(srcW, dstW)
	ys := footprints(srcH, dstH)

	out := make([]float64, dstW*dstH)
	for dy, ySpan := range ys {
		for dx, xSpan := range xs {
			out[dy*dstW+dx] = reduce(src, srcW, xSpan, ySpan, alg)
		}
	}
	return out
}

func reduce(src []float64, srcW int, xs, ys span, alg domain.Resampling) float64 {
	var (
		sum, weight float64
		lo          = math.Inf(1)
		hi          = math.Inf(-1)
		counts      map[float64]int
		modeValue   float64
		modeCount   int
	)
	if alg == domain.Mode {
		counts = make(map[float64]int)
	}

	for j, wy := range ys.weights {
		if wy == 0 {
			continue
		}
		row := (ys.start + j) * srcW
		for i, wx := range xs.weights {
			if wx == 0 {
				continue
			}
			v := src[row+xs.start+i]
			switch alg {
			case domain.Average:
				sum += v * wx * wy
				weight += wx * wy
			case domain.Min:
				lo = math.Min(lo, v)
			case domain.Max:
				hi = math.Max(hi, v)
			case domain.Mode:
				counts[v]++
				if counts[v] > modeCount {
					modeCount = counts[v]
					modeValue = v
				}
			}
		}
	}

	switch alg {
	case domain.Min:
		return lo
	case domain.Max:
		return hi
	case domain.Mode:
		return modeValue
	default:
		if weight == 0 {
			return math.NaN()
		}
		return sum / weight
	}
}
