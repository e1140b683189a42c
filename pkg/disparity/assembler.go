// Package disparity assembles full disparity maps from per-pixel correlation
// results.
package disparity

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"stereodisparity/internal/models"
	"stereodisparity/pkg/correlation"
)

// ErrDimensionMismatch is returned when the left and right images of a pair
// do not share width and height.
var ErrDimensionMismatch = errors.New("left and right image dimensions differ")

// DimensionMismatchError carries both image sizes for diagnostics
type DimensionMismatchError struct {
	LeftWidth, LeftHeight   int
	RightWidth, RightHeight int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%v: left %dx%d vs right %dx%d",
		ErrDimensionMismatch, e.LeftWidth, e.LeftHeight, e.RightWidth, e.RightHeight)
}

// Unwrap lets errors.Is match ErrDimensionMismatch
func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}

// Assembler builds disparity maps by running a Correlator over every pixel.
// Rows are split into contiguous bands that are computed concurrently; each
// worker writes only the rows of its band.
type Assembler struct {
	correlator *correlation.Correlator
	workers    int
	logger     zerolog.Logger
}

// Option customises an Assembler
type Option func(*Assembler)

// WithWorkers sets the number of concurrent row bands. Values below one
// select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(a *Assembler) {
		a.workers = n
	}
}

// WithLogger attaches a logger for progress events
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// NewAssembler creates an assembler around the given correlator
func NewAssembler(c *correlation.Correlator, opts ...Option) *Assembler {
	a := &Assembler{
		correlator: c,
		workers:    runtime.NumCPU(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.workers < 1 {
		a.workers = runtime.NumCPU()
	}
	a.logger = a.logger.With().Str("component", "assembler").Logger()
	return a
}

// Build computes the disparity map of a stereo pair.
//
// The images must have identical dimensions; a mismatch is reported as a
// *DimensionMismatchError before any pixel is processed. Pixels in the final
// row and the final column are never visited and keep disparity 0 with
// status Unprocessed.
//
// Cancellation of ctx is checked once per row. A cancelled build returns the
// context error and no map.
func (a *Assembler) Build(ctx context.Context, left, right *models.Image) (*models.DisparityMap, error) {
	if !left.SameSize(right) {
		return nil, &DimensionMismatchError{
			LeftWidth:   left.Width,
			LeftHeight:  left.Height,
			RightWidth:  right.Width,
			RightHeight: right.Height,
		}
	}

	params := a.correlator.Params()
	out := models.NewDisparityMap(left.Width, left.Height, params.MaxValidDisparity)

	// The final row and column are excluded from the scan
	xMax := left.Width - 1
	yMax := left.Height - 1
	if xMax <= 0 || yMax <= 0 {
		return out, nil
	}

	bands := splitRows(yMax, a.workers)
	a.logger.Debug().
		Int("width", left.Width).
		Int("height", left.Height).
		Int("bands", len(bands)).
		Msg("building disparity map")

	var rowsDone atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for _, band := range bands {
		y0, y1 := band[0], band[1]
		g.Go(func() error {
			for y := y0; y < y1; y++ {
				if err := ctx.Err(); err != nil {
					return err
				}

				disp := out.Disparity.Row(y)
				status := out.StatusRow(y)
				for x := 0; x < xMax; x++ {
					m := a.correlator.Evaluate(left, right, x, y, xMax, yMax)
					disp[x] = m.Disparity
					status[x] = m.Status
				}

				done := rowsDone.Add(1)
				if done%64 == 0 {
					a.logger.Debug().
						Int64("rows", done).
						Int("total", yMax).
						Msg("correlation progress")
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("disparity map build interrupted: %w", err)
	}
	return out, nil
}

// splitRows divides rows [0, h) into at most workers contiguous bands
func splitRows(h, workers int) [][2]int {
	if workers < 1 {
		workers = 1
	}
	if workers > h {
		workers = h
	}
	bands := make([][2]int, 0, workers)
	step := h / workers
	start := 0
	for i := 0; i < workers; i++ {
		end := start + step
		if i == workers-1 {
			end = h
		}
		bands = append(bands, [2]int{start, end})
		start = end
	}
	return bands
}
