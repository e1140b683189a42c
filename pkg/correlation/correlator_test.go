package correlation

import (
	"math/rand"
	"testing"

	"stereodisparity/internal/models"
)

// smallParams keeps the search cheap for unit tests
func smallParams() Params {
	return Params{
		CrossWidth:        2,
		CrossHeight:       2,
		MinValidDisparity: 3,
		MaxValidDisparity: 20,
		RatioThreshold:    0.35,
	}
}

// texturedPair returns a random high-contrast left image and a right image
// whose column c equals left column c+shift (right border replicated)
func texturedPair(width, height, shift int, seed int64) (*models.Image, *models.Image) {
	rng := rand.New(rand.NewSource(seed))
	left := models.NewImage(width, height)
	for i := range left.Pix {
		if rng.Intn(2) == 0 {
			left.Pix[i] = uint8(rng.Intn(40))
		} else {
			left.Pix[i] = uint8(215 + rng.Intn(40))
		}
	}

	right := models.NewImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			src := x + shift
			if src >= width {
				src = width - 1
			}
			right.Set(x, y, left.At(src, y))
		}
	}
	return left, right
}

func uniformImage(width, height int, v uint8) *models.Image {
	img := models.NewImage(width, height)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestDefaultParamsValid(t *testing.T) {
	p := DefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("Default parameters should be valid: %v", err)
	}
	if p.CrossWidth != 5 || p.CrossHeight != 5 || p.MinValidDisparity != 10 ||
		p.MaxValidDisparity != 200 || p.RatioThreshold != 0.35 {
		t.Errorf("Unexpected defaults: %+v", p)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"negative width", func(p *Params) { p.CrossWidth = -1 }},
		{"negative min", func(p *Params) { p.MinValidDisparity = -2 }},
		{"max below min", func(p *Params) { p.MaxValidDisparity = 5; p.MinValidDisparity = 6 }},
		{"max beyond 8 bits", func(p *Params) { p.MaxValidDisparity = 256 }},
		{"zero ratio", func(p *Params) { p.RatioThreshold = 0 }},
		{"ratio above one", func(p *Params) { p.RatioThreshold = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Errorf("Expected validation error for %+v", p)
			}
		})
	}
}

func TestShiftWindow(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi int
		limit  int
		want   window
	}{
		{"inside", 3, 13, 20, window{3, 13}},
		{"top edge shifts down", -2, 8, 20, window{0, 10}},
		{"bottom edge shifts up", 15, 25, 20, window{10, 20}},
		{"range smaller than window", -3, 7, 4, window{0, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shiftWindow(tt.lo, tt.hi, 0, tt.limit)
			if got != tt.want {
				t.Errorf("shiftWindow(%d, %d, 0, %d) = %+v, want %+v", tt.lo, tt.hi, tt.limit, got, tt.want)
			}
		})
	}
}

func TestOffsetWindowStaysInBounds(t *testing.T) {
	c := NewCorrelator(smallParams())
	xMax := 39

	for x := 0; x <= xMax; x++ {
		for ii := 0; ii < x; ii++ {
			off := c.offsetWindow(x, ii, xMax)
			if ii+off.lo < 0 || x+off.hi > xMax {
				t.Fatalf("Window %+v escapes the image for x=%d ii=%d", off, x, ii)
			}

			// A full-width window fits whenever x-ii leaves room for it
			if 4-ii <= xMax-x && off.hi-off.lo != 4 {
				t.Fatalf("Window %+v should keep its full width for x=%d ii=%d", off, x, ii)
			}
		}
	}
}

// TestMatchNearLeftEdge verifies pixels without enough margin return 0
func TestMatchNearLeftEdge(t *testing.T) {
	p := smallParams()
	c := NewCorrelator(p)
	left, right := texturedPair(60, 12, 8, 1)

	for x := 0; x < p.MinValidDisparity; x++ {
		m := c.Evaluate(left, right, x, 5, 59, 11)
		if m.Disparity != 0 || m.Status != models.TooCloseToEdge {
			t.Errorf("x=%d: expected 0/too-close, got %d/%s", x, m.Disparity, m.Status)
		}
	}
}

func TestMatchEmptyRange(t *testing.T) {
	p := smallParams()
	p.MinValidDisparity = 4
	p.MaxValidDisparity = 4
	c := NewCorrelator(p)
	left, right := texturedPair(30, 8, 4, 2)

	m := c.Evaluate(left, right, 10, 4, 29, 7)
	if m.Status != models.EmptyRange || m.Disparity != 0 {
		t.Errorf("Expected empty range, got %d/%s", m.Disparity, m.Status)
	}

	// At x == MinValidDisparity the range [0, 0) is empty as well
	m = c.Evaluate(left, right, 4, 4, 29, 7)
	if m.Status != models.EmptyRange {
		t.Errorf("Expected empty range at the minimum column, got %s", m.Status)
	}
}

func TestMatchUniformIsTextureless(t *testing.T) {
	c := NewCorrelator(smallParams())
	img := uniformImage(50, 10, 90)

	for _, x := range []int{10, 25, 48} {
		m := c.Evaluate(img, img, x, 5, 49, 9)
		if m.Disparity != 0 || m.Status != models.Textureless {
			t.Errorf("x=%d: expected 0/textureless, got %d/%s", x, m.Disparity, m.Status)
		}
		if m.MaxSAD != 0 {
			t.Errorf("x=%d: expected zero cost spread, got max %d", x, m.MaxSAD)
		}
	}
}

// TestMatchRecoversShift checks exact recovery on a synthetic pair for
// pixels far from every edge
func TestMatchRecoversShift(t *testing.T) {
	p := smallParams()
	c := NewCorrelator(p)
	width, height := 80, 16

	for _, d := range []int{4, 9, 15, 20} {
		left, right := texturedPair(width, height, d, int64(d))
		for y := p.CrossHeight; y < height-p.CrossHeight; y++ {
			for x := p.MaxValidDisparity + p.CrossWidth; x < width-p.CrossWidth-d; x++ {
				m := c.Evaluate(left, right, x, y, width-1, height-1)
				if int(m.Disparity) != d || m.Status != models.Accepted {
					t.Fatalf("d=%d (%d,%d): got %d/%s", d, x, y, m.Disparity, m.Status)
				}
				if m.MinSAD != 0 {
					t.Fatalf("d=%d (%d,%d): expected perfect match cost, got %d", d, x, y, m.MinSAD)
				}
			}
		}
	}
}

// TestMatchRejectsAmbiguous pairs two unrelated noise images, where the best
// candidate costs nearly as much as the worst one
func TestMatchRejectsAmbiguous(t *testing.T) {
	p := smallParams()
	c := NewCorrelator(p)

	rng := rand.New(rand.NewSource(3))
	left := models.NewImage(60, 12)
	right := models.NewImage(60, 12)
	for i := range left.Pix {
		left.Pix[i] = uint8(rng.Intn(256))
		right.Pix[i] = uint8(rng.Intn(256))
	}

	m := c.Evaluate(left, right, 40, 6, 59, 11)
	if m.Status != models.Ambiguous || m.Disparity != 0 {
		t.Errorf("Expected ambiguous rejection for uncorrelated images, got %d/%s (min %d max %d)",
			m.Disparity, m.Status, m.MinSAD, m.MaxSAD)
	}
}

func TestMatchDisparityRange(t *testing.T) {
	p := smallParams()
	c := NewCorrelator(p)
	left, right := texturedPair(64, 14, 11, 5)

	for y := 0; y < 14; y++ {
		for x := 0; x < 64; x++ {
			m := c.Evaluate(left, right, x, y, 63, 13)
			if int(m.Disparity) > p.MaxValidDisparity {
				t.Fatalf("(%d,%d): disparity %d above maximum", x, y, m.Disparity)
			}
			if m.Status == models.Accepted && int(m.Disparity) <= p.MinValidDisparity {
				t.Fatalf("(%d,%d): accepted disparity %d not above minimum", x, y, m.Disparity)
			}
			if got := c.Match(left, right, x, y, 63, 13); got != m.Disparity {
				t.Fatalf("(%d,%d): Match and Evaluate disagree: %d vs %d", x, y, got, m.Disparity)
			}
		}
	}
}

// TestMatchTinyImage makes sure windows larger than the image do not index
// past its borders
func TestMatchTinyImage(t *testing.T) {
	p := smallParams()
	p.MinValidDisparity = 1
	c := NewCorrelator(p)
	left, right := texturedPair(4, 2, 1, 9)

	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			c.Evaluate(left, right, x, y, 3, 1)
		}
	}
}
