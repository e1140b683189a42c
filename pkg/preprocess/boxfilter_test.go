package preprocess

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"stereodisparity/internal/models"
)

// createTestImage builds an image from a per-pixel pattern function
func createTestImage(width, height int, pattern func(x, y int) uint8) *models.Image {
	img := models.NewImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, pattern(x, y))
		}
	}
	return img
}

// TestBoxFilterConstantField verifies that a constant image survives both
// truncating passes unchanged
func TestBoxFilterConstantField(t *testing.T) {
	for _, v := range []uint8{0, 1, 127, 254, 255} {
		img := createTestImage(37, 23, func(x, y int) uint8 { return v })
		got := BoxFilter(img, 5, 5)

		if diff := cmp.Diff(img.Pix, got.Pix); diff != "" {
			t.Errorf("Constant field %d changed (-want +got):\n%s", v, diff)
		}
	}
}

func TestBoxFilterZeroSized(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"zero width", 0, 10},
		{"zero height", 10, 0},
		{"empty", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BoxFilter(models.NewImage(tt.width, tt.height), 5, 5)
			if got.Width != tt.width || got.Height != tt.height {
				t.Errorf("Expected %dx%d, got %s", tt.width, tt.height, got)
			}
		})
	}
}

// TestBoxFilterEdgeReplication checks the border convention on a single row:
// the samples past each end repeat the edge value instead of reading zero
func TestBoxFilterEdgeReplication(t *testing.T) {
	img := &models.Image{Pix: []uint8{0, 30, 60}, Width: 3, Height: 1}

	// Extended row is [0 0 30 60 60]
	got := BoxFilter(img, 1, 0)
	want := []uint8{10, 30, 50}
	if diff := cmp.Diff(want, got.Pix); diff != "" {
		t.Errorf("Unexpected row pass (-want +got):\n%s", diff)
	}

	// Zero padding would have produced (30+60+0)/3 = 30 for the last pixel
	if got.At(2, 0) == 30 {
		t.Error("Last pixel looks zero-padded")
	}
}

func TestBoxFilterTruncates(t *testing.T) {
	img := &models.Image{Pix: []uint8{1, 2}, Width: 2, Height: 1}

	// Windows sum to 4 and 5, both truncate to 1
	got := BoxFilter(img, 1, 0)
	if diff := cmp.Diff([]uint8{1, 1}, got.Pix); diff != "" {
		t.Errorf("Unexpected truncation (-want +got):\n%s", diff)
	}
}

// TestBoxFilterColumnPass verifies the vertical pass mirrors the horizontal one
func TestBoxFilterColumnPass(t *testing.T) {
	img := &models.Image{Pix: []uint8{0, 30, 60}, Width: 1, Height: 3}

	got := BoxFilter(img, 0, 1)
	if diff := cmp.Diff([]uint8{10, 30, 50}, got.Pix); diff != "" {
		t.Errorf("Unexpected column pass (-want +got):\n%s", diff)
	}
}

// TestBoxFilterMatchesBruteForce compares the running-sum filter against a
// direct two-pass evaluation with clamped indices
func TestBoxFilterMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	img := createTestImage(19, 13, func(x, y int) uint8 { return uint8(rng.Intn(256)) })
	rx, ry := 3, 2

	clamp := func(v, hi int) int {
		if v < 0 {
			return 0
		}
		if v > hi {
			return hi
		}
		return v
	}

	rows := models.NewImage(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			sum := 0
			for k := -rx; k <= rx; k++ {
				sum += int(img.At(clamp(x+k, img.Width-1), y))
			}
			rows.Set(x, y, uint8(sum/(2*rx+1)))
		}
	}
	want := models.NewImage(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			sum := 0
			for k := -ry; k <= ry; k++ {
				sum += int(rows.At(x, clamp(y+k, img.Height-1)))
			}
			want.Set(x, y, uint8(sum/(2*ry+1)))
		}
	}

	got := BoxFilter(img, rx, ry)
	if diff := cmp.Diff(want.Pix, got.Pix); diff != "" {
		t.Errorf("Running-sum filter differs from brute force (-want +got):\n%s", diff)
	}
}

func TestBoxFilterLeavesInputUntouched(t *testing.T) {
	img := createTestImage(8, 8, func(x, y int) uint8 { return uint8(x * y * 3) })
	before := img.Clone()

	BoxFilter(img, 2, 2)

	if diff := cmp.Diff(before.Pix, img.Pix); diff != "" {
		t.Errorf("Input was modified (-before +after):\n%s", diff)
	}
}
