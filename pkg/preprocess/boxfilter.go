// Package preprocess conditions stereo halves before correlation.
package preprocess

import (
	"stereodisparity/internal/models"
)

// BoxFilter applies a separable box filter to img and returns a new image of
// identical dimensions. The row pass averages a horizontal window of
// 2*xRadius+1 samples, the column pass then averages a vertical window of
// 2*yRadius+1 samples over the row-pass output.
//
// Each pass reads its window from a prefix-sum buffer built over the line
// extended by radius copies of the first and last sample (edge replication),
// so border pixels need no special branch. Both passes truncate when
// dividing by the kernel size; the accumulated rounding error against a true
// 2-D box filter is expected.
//
// Parameters:
//   - img: Source image, left untouched
//   - xRadius, yRadius: Horizontal and vertical kernel half-extents
//
// Returns:
//   - The filtered image. A zero-width or zero-height input yields an empty
//     image of the same dimensions.
func BoxFilter(img *models.Image, xRadius, yRadius int) *models.Image {
	width, height := img.Width, img.Height
	out := models.NewImage(width, height)
	if width == 0 || height == 0 {
		return out
	}
	if xRadius < 0 {
		xRadius = 0
	}
	if yRadius < 0 {
		yRadius = 0
	}

	// Row pass: source rows straight into the output buffer
	prefix := make([]uint32, width+2*xRadius+1)
	for y := 0; y < height; y++ {
		filterLine(img.Row(y), out.Row(y), prefix, xRadius)
	}

	// Column pass: gather each column of the row-pass output, filter it,
	// and scatter it back in place
	line := make([]uint8, height)
	filtered := make([]uint8, height)
	prefix = make([]uint32, height+2*yRadius+1)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			line[y] = out.At(x, y)
		}
		filterLine(line, filtered, prefix, yRadius)
		for y := 0; y < height; y++ {
			out.Set(x, y, filtered[y])
		}
	}

	return out
}

// filterLine writes the windowed mean of src into dst. prefix must hold
// len(src)+2*radius+1 entries; prefix[i] is the sum of the first i samples
// of the edge-extended line.
func filterLine(src, dst []uint8, prefix []uint32, radius int) {
	n := len(src)
	kernel := uint32(2*radius + 1)
	first := uint32(src[0])
	last := uint32(src[n-1])

	var sum uint32
	prefix[0] = 0
	i := 1
	for k := 0; k < radius; k++ {
		sum += first
		prefix[i] = sum
		i++
	}
	for _, v := range src {
		sum += uint32(v)
		prefix[i] = sum
		i++
	}
	for k := 0; k < radius; k++ {
		sum += last
		prefix[i] = sum
		i++
	}

	// The window centred on sample x spans extended indices [x, x+2*radius]
	for x := 0; x < n; x++ {
		dst[x] = uint8((prefix[x+2*radius+1] - prefix[x]) / kernel)
	}
}
