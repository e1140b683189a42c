// Package stereoio reads combined stereo frames and writes 8-bit grayscale
// results.
package stereoio

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"stereodisparity/internal/models"
)

// ErrFrameTooNarrow is returned when a frame cannot be split into two halves
var ErrFrameTooNarrow = errors.New("stereo frame is too narrow to split")

// LoadFrame decodes an image file and converts it to 8-bit grayscale.
// PNG, JPEG, GIF, WEBP, BMP and TIFF inputs are accepted.
func LoadFrame(path string) (*models.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return ToGray(img), nil
}

// ToGray converts any image into the internal grayscale representation
// using the luma weights of color.GrayModel.
func ToGray(img image.Image) *models.Image {
	if g, ok := img.(*image.Gray); ok {
		return models.ImageFromGray(g)
	}

	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(gray, gray.Bounds(), img, b.Min, xdraw.Src)
	return models.ImageFromGray(gray)
}

// SplitFrame cuts a side-by-side stereo frame into its left and right
// halves. Both halves are width/2 columns wide; for an odd frame width the
// final column belongs to neither half.
func SplitFrame(frame *models.Image) (left, right *models.Image, err error) {
	half := frame.Width / 2
	if half == 0 {
		return nil, nil, fmt.Errorf("%w: width %d", ErrFrameTooNarrow, frame.Width)
	}

	left = models.NewImage(half, frame.Height)
	right = models.NewImage(half, frame.Height)
	for y := 0; y < frame.Height; y++ {
		row := frame.Row(y)
		copy(left.Row(y), row[:half])
		copy(right.Row(y), row[half:2*half])
	}
	return left, right, nil
}

// SaveGray writes img as an 8-bit grayscale PNG, creating parent
// directories as needed.
func SaveGray(path string, img *models.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	if err := png.Encode(file, img.ToGray()); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return file.Close()
}
