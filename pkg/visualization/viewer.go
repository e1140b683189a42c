package visualization

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"stereodisparity/internal/models"
	"stereodisparity/pkg/stereoio"
)

// Viewer renders a disparity map for inspection. Raw disparities rarely use
// the full 8-bit range, so the viewer stretches them against the maximum
// searched disparity before writing images.
type Viewer struct {
	// dmap is the disparity map being rendered
	dmap *models.DisparityMap

	// maxDisparity is the value mapped to full white
	maxDisparity int
}

// NewViewer creates a viewer for the given map
func NewViewer(dmap *models.DisparityMap) *Viewer {
	maxDisparity := dmap.MaxDisparity
	if maxDisparity <= 0 {
		maxDisparity = 255
	}
	return &Viewer{
		dmap:         dmap,
		maxDisparity: maxDisparity,
	}
}

// Normalized returns the map scaled so that maxDisparity becomes 255
func (v *Viewer) Normalized() *image.Gray {
	w, h := v.dmap.Width(), v.dmap.Height()
	img := image.NewGray(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		row := v.dmap.Disparity.Row(y)
		for x, d := range row {
			value := int(d) * 255 / v.maxDisparity
			if value > 255 {
				value = 255
			}
			img.SetGray(x, y, color.Gray{Y: uint8(value)})
		}
	}

	return img
}

// AcceptedDisparities returns the disparity of every accepted pixel
func (v *Viewer) AcceptedDisparities() []float64 {
	values := make([]float64, 0, len(v.dmap.Status))
	for i, s := range v.dmap.Status {
		if s == models.Accepted {
			values = append(values, float64(v.dmap.Disparity.Pix[i]))
		}
	}
	return values
}

// SaveNormalized writes the contrast-stretched map as a PNG
func (v *Viewer) SaveNormalized(filename string) error {
	return stereoio.SaveGray(filename, models.ImageFromGray(v.Normalized()))
}

// SaveMask writes the validity mask (accepted pixels white) as a PNG
func (v *Viewer) SaveMask(filename string) error {
	return stereoio.SaveGray(filename, v.dmap.ValidMask())
}

// SaveHistogram plots the distribution of accepted disparities.
// One bin is used per disparity value up to maxDisparity.
func (v *Viewer) SaveHistogram(filename string) error {
	values := v.AcceptedDisparities()
	if len(values) == 0 {
		return fmt.Errorf("no accepted disparities to plot")
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Disparity distribution (%d accepted pixels)", len(values))
	p.X.Label.Text = "Disparity (px)"
	p.Y.Label.Text = "Pixels"

	hist, err := plotter.NewHist(plotter.Values(values), v.maxDisparity)
	if err != nil {
		return fmt.Errorf("build histogram: %w", err)
	}
	hist.FillColor = color.Gray{Y: 96}
	p.Add(hist)
	p.X.Min = 0
	p.X.Max = float64(v.maxDisparity)

	if err := p.Save(10*vg.Inch, 4*vg.Inch, filename); err != nil {
		return fmt.Errorf("save histogram plot: %w", err)
	}
	return nil
}
