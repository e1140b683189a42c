// Package correlation implements the per-pixel block-matching search between
// the two halves of a rectified stereo pair.
package correlation

import (
	"fmt"

	"stereodisparity/internal/models"
)

// MaxRepresentableDisparity is the largest disparity an 8-bit map can hold
const MaxRepresentableDisparity = 255

// Params holds the block-matching parameters.
type Params struct {
	// CrossWidth is the half-width of the matching window in pixels
	CrossWidth int

	// CrossHeight is the half-height of the matching window in pixels
	CrossHeight int

	// MinValidDisparity is the smallest horizontal offset searched.
	// Pixels closer than this to the left edge are never matched.
	MinValidDisparity int

	// MaxValidDisparity is the largest horizontal offset searched.
	// It must fit the 8-bit output map.
	MaxValidDisparity int

	// RatioThreshold is the validity gate: the best match is accepted only
	// when minSAD/maxSAD is strictly below this value.
	RatioThreshold float64
}

// DefaultParams returns the parameter set the tool ships with
func DefaultParams() Params {
	return Params{
		CrossWidth:        5,
		CrossHeight:       5,
		MinValidDisparity: 10,
		MaxValidDisparity: 200,
		RatioThreshold:    0.35,
	}
}

// Validate checks that the parameters describe a searchable range
func (p Params) Validate() error {
	if p.CrossWidth < 0 || p.CrossHeight < 0 {
		return fmt.Errorf("window half-extents must be non-negative, got %dx%d", p.CrossWidth, p.CrossHeight)
	}
	if p.MinValidDisparity < 0 {
		return fmt.Errorf("minimum disparity must be non-negative, got %d", p.MinValidDisparity)
	}
	if p.MaxValidDisparity < p.MinValidDisparity {
		return fmt.Errorf("maximum disparity %d is below minimum disparity %d", p.MaxValidDisparity, p.MinValidDisparity)
	}
	if p.MaxValidDisparity > MaxRepresentableDisparity {
		return fmt.Errorf("maximum disparity %d exceeds the 8-bit range", p.MaxValidDisparity)
	}
	if p.RatioThreshold <= 0 || p.RatioThreshold > 1 {
		return fmt.Errorf("ratio threshold must be in (0, 1], got %g", p.RatioThreshold)
	}
	return nil
}

// Match is the outcome of the search for a single pixel
type Match struct {
	// Disparity is the accepted horizontal offset, or 0
	Disparity uint8

	// Status explains how Disparity was reached
	Status models.MatchStatus

	// MinSAD and MaxSAD are the extreme costs seen over the candidates.
	// Both are zero when no candidate was evaluated.
	MinSAD uint32
	MaxSAD uint32

	// Candidates is the number of offsets evaluated
	Candidates int
}

// window is an inclusive span [lo, hi] of pixel indices or offsets
type window struct {
	lo, hi int
}

// Correlator performs the bounded SAD search. It holds only immutable
// parameters and can be shared between goroutines.
type Correlator struct {
	params Params
}

// NewCorrelator creates a correlator with the given parameters.
// Callers are expected to have validated them with Params.Validate.
func NewCorrelator(params Params) *Correlator {
	return &Correlator{params: params}
}

// Params returns the parameters the correlator was built with
func (c *Correlator) Params() Params {
	return c.params
}

// Match searches the right image for the best correspondence of pixel
// (x, y) of the left image and returns its disparity, or 0 when no valid
// match exists. xMax and yMax are the largest valid column and row indices.
func (c *Correlator) Match(left, right *models.Image, x, y, xMax, yMax int) uint8 {
	return c.Evaluate(left, right, x, y, xMax, yMax).Disparity
}

// Evaluate runs the same search as Match and reports the full outcome.
//
// The search proceeds in four steps:
//  1. A vertical window of CrossHeight rows on each side of y is placed
//     inside [0, yMax], shifted flush against an edge rather than shrunk.
//  2. The candidate columns are [max(0, x-MaxValidDisparity), x-MinValidDisparity).
//  3. For each candidate ii a horizontal window of CrossWidth columns on
//     each side is shifted until both the left window around x and the right
//     window around ii fit the image, and the SAD between them is summed.
//  4. The lowest-cost candidate is accepted only when the cost spread is
//     non-zero and minSAD/maxSAD < RatioThreshold.
func (c *Correlator) Evaluate(left, right *models.Image, x, y, xMax, yMax int) Match {
	p := c.params

	// Too close to the left edge to admit any valid disparity
	if x < p.MinValidDisparity {
		return Match{Status: models.TooCloseToEdge}
	}

	xmin := x - p.MaxValidDisparity
	if xmin < 0 {
		xmin = 0
	}
	xmax := x - p.MinValidDisparity
	if xmax <= xmin {
		return Match{Status: models.EmptyRange}
	}

	rows := shiftWindow(y-p.CrossHeight, y+p.CrossHeight, 0, yMax)

	var (
		minSAD, maxSAD uint32
		bestCandidate  int
	)
	for ii := xmin; ii < xmax; ii++ {
		cols := c.offsetWindow(x, ii, xMax)
		sad := sumAbsDiff(left, right, x, ii, cols, rows)

		// Both extremes are seeded from the first candidate
		if ii == xmin || sad < minSAD {
			minSAD = sad
			bestCandidate = ii
		}
		if ii == xmin || sad > maxSAD {
			maxSAD = sad
		}
	}

	m := Match{
		MinSAD:     minSAD,
		MaxSAD:     maxSAD,
		Candidates: xmax - xmin,
	}

	// Uniform region: the cost cannot discriminate between candidates
	if maxSAD == 0 {
		m.Status = models.Textureless
		return m
	}

	if float64(minSAD)/float64(maxSAD) < p.RatioThreshold {
		m.Disparity = uint8(x - bestCandidate)
		m.Status = models.Accepted
		return m
	}

	m.Status = models.Ambiguous
	return m
}

// offsetWindow returns the column offsets applied to both x (left image)
// and ii (right image). ii is always left of x, so the left border constrains
// the right window and the right border constrains the left window.
func (c *Correlator) offsetWindow(x, ii, xMax int) window {
	w := c.params.CrossWidth
	off := window{lo: -w, hi: w}

	if ii+off.lo < 0 {
		off.lo = -ii
		off.hi = off.lo + 2*w
	} else if x+off.hi > xMax {
		off.hi = xMax - x
		off.lo = off.hi - 2*w
	}

	// Images narrower than the window fall back to shrinking
	if ii+off.lo < 0 {
		off.lo = -ii
	}
	if x+off.hi > xMax {
		off.hi = xMax - x
	}
	return off
}

// shiftWindow places the inclusive span [lo, hi] inside [0, limit], moving
// it flush against the violated edge and shrinking only when the span is
// wider than the range itself.
func shiftWindow(lo, hi, floor, limit int) window {
	if lo < floor {
		hi += floor - lo
		lo = floor
	} else if hi > limit {
		lo -= hi - limit
		hi = limit
	}
	if lo < floor {
		lo = floor
	}
	if hi > limit {
		hi = limit
	}
	return window{lo: lo, hi: hi}
}

// sumAbsDiff accumulates |left(x+k, r) - right(ii+k, r)| over the offsets in
// cols and the rows in rows
func sumAbsDiff(left, right *models.Image, x, ii int, cols, rows window) uint32 {
	var sum uint32
	for r := rows.lo; r <= rows.hi; r++ {
		lrow := left.Row(r)[x+cols.lo : x+cols.hi+1]
		rrow := right.Row(r)[ii+cols.lo : ii+cols.hi+1]
		for k, lv := range lrow {
			d := int32(lv) - int32(rrow[k])
			if d < 0 {
				d = -d
			}
			sum += uint32(d)
		}
	}
	return sum
}
