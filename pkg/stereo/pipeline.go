// Package stereo runs the complete disparity pipeline: loading a combined
// stereo frame, splitting it, optional preprocessing, correlation and
// persistence of the results.
package stereo

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"stereodisparity/internal/logging"
	"stereodisparity/internal/models"
	"stereodisparity/pkg/config"
	"stereodisparity/pkg/correlation"
	"stereodisparity/pkg/disparity"
	"stereodisparity/pkg/preprocess"
	"stereodisparity/pkg/stereoio"
	"stereodisparity/pkg/visualization"
)

// Params holds the pipeline inputs and outputs together with the tuning
// configuration.
type Params struct {
	// InputFile is the combined side-by-side stereo frame.
	// The left half holds the left view, the right half the right view.
	InputFile string

	// OutputFile is where the raw 8-bit disparity map is saved as PNG
	OutputFile string

	// Config carries the correlation, filter, processing and output settings
	Config *config.Config
}

// Pipeline handles the disparity computation for one stereo frame.
//
// The process consists of several steps:
// 1. Loading the combined frame and converting it to grayscale
// 2. Splitting it into left and right views
// 3. Optionally box-filtering both views
// 4. Building the disparity map
// 5. Saving the map and any intermediary results
// 6. Calculating map statistics
type Pipeline struct {
	// params stores the pipeline configuration
	params *Params

	// left and right hold the views fed to the correlator
	left  *models.Image
	right *models.Image

	// dmap is the finished disparity map
	dmap *models.DisparityMap

	// metrics stores the statistics after processing
	metrics Metrics

	logger zerolog.Logger
}

// NewPipeline creates a new pipeline instance with the provided parameters.
// A nil Config selects config.DefaultConfig.
func NewPipeline(params *Params, logger zerolog.Logger) *Pipeline {
	if params.Config == nil {
		params.Config = config.DefaultConfig()
	}
	return &Pipeline{
		params: params,
		logger: logging.Component(logger, "pipeline"),
		metrics: Metrics{
			Timings: make(map[string]time.Duration),
		},
	}
}

// Process runs the complete pipeline
func (p *Pipeline) Process(ctx context.Context) error {
	cfg := p.params.Config
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Step 1 & 2: Load the frame and split it into views
	if err := p.timed("load", p.loadViews); err != nil {
		return fmt.Errorf("failed to load stereo frame: %w", err)
	}
	p.saveIntermediary("01_left.png", p.left)
	p.saveIntermediary("01_right.png", p.right)

	// Step 3: Condition both views with the box filter
	if cfg.Processing.Preprocess {
		p.timed("preprocess", func() error {
			p.preprocessViews()
			return nil
		})
		p.saveIntermediary("02_left_filtered.png", p.left)
		p.saveIntermediary("02_right_filtered.png", p.right)
	}

	// Step 4: Build the disparity map
	if err := p.timed("correlate", func() error {
		return p.buildMap(ctx)
	}); err != nil {
		return fmt.Errorf("failed to build disparity map: %w", err)
	}

	// Step 5: Persist the raw map and the renderings
	if err := p.timed("save", p.saveOutputs); err != nil {
		return fmt.Errorf("failed to save disparity map: %w", err)
	}

	// Step 6: Statistics
	timings := p.metrics.Timings
	p.metrics = computeMetrics(p.dmap)
	p.metrics.Timings = timings

	p.logger.Info().
		Float64("valid_fraction", p.metrics.ValidFraction).
		Float64("mean_disparity", p.metrics.MeanDisparity).
		Msg("disparity map complete")
	return nil
}

// loadViews reads the stereo frame and splits it into left and right views
func (p *Pipeline) loadViews() error {
	frame, err := stereoio.LoadFrame(p.params.InputFile)
	if err != nil {
		return err
	}

	p.left, p.right, err = stereoio.SplitFrame(frame)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("input", p.params.InputFile).
		Str("frame", frame.String()).
		Str("view", p.left.String()).
		Msg("stereo frame loaded")
	return nil
}

// preprocessViews replaces both views with their box-filtered versions
func (p *Pipeline) preprocessViews() {
	radius := p.params.Config.Filter.Radius
	p.left = preprocess.BoxFilter(p.left, radius, radius)
	p.right = preprocess.BoxFilter(p.right, radius, radius)
	p.logger.Debug().Int("radius", radius).Msg("views filtered")
}

// buildMap correlates the two views
func (p *Pipeline) buildMap(ctx context.Context) error {
	cfg := p.params.Config
	assembler := disparity.NewAssembler(
		correlation.NewCorrelator(cfg.CorrelationParams()),
		disparity.WithWorkers(cfg.Processing.NumWorkers),
		disparity.WithLogger(p.logger),
	)

	dmap, err := assembler.Build(ctx, p.left, p.right)
	if err != nil {
		return err
	}
	p.dmap = dmap
	return nil
}

// saveOutputs writes the raw map, and when enabled the normalized map,
// validity mask and histogram
func (p *Pipeline) saveOutputs() error {
	if p.params.OutputFile != "" {
		if err := stereoio.SaveGray(p.params.OutputFile, p.dmap.Disparity); err != nil {
			return err
		}
		p.logger.Info().Str("output", p.params.OutputFile).Msg("disparity map saved")
	}

	out := p.params.Config.Output
	if !out.SaveIntermediaryResults {
		return nil
	}

	viewer := visualization.NewViewer(p.dmap)
	if err := viewer.SaveNormalized(filepath.Join(out.IntermediaryDir, "03_disparity_normalized.png")); err != nil {
		p.logger.Warn().Err(err).Msg("failed to save normalized map")
	}
	if err := viewer.SaveMask(filepath.Join(out.IntermediaryDir, "04_valid_mask.png")); err != nil {
		p.logger.Warn().Err(err).Msg("failed to save validity mask")
	}
	if out.Histogram {
		if err := viewer.SaveHistogram(filepath.Join(out.IntermediaryDir, "05_histogram.png")); err != nil {
			p.logger.Warn().Err(err).Msg("failed to save histogram")
		}
	}
	return nil
}

// saveIntermediary writes one intermediary image. Failures are logged and
// do not stop the pipeline.
func (p *Pipeline) saveIntermediary(name string, img *models.Image) {
	out := p.params.Config.Output
	if !out.SaveIntermediaryResults {
		return
	}
	if err := stereoio.SaveGray(filepath.Join(out.IntermediaryDir, name), img); err != nil {
		p.logger.Warn().Err(err).Str("file", name).Msg("failed to save intermediary result")
	}
}

// timed runs step and records its duration under name
func (p *Pipeline) timed(name string, step func() error) error {
	start := time.Now()
	err := step()
	elapsed := time.Since(start)
	p.metrics.Timings[name] = elapsed
	p.logger.Info().Str("step", name).Dur("elapsed", elapsed).Msg("step finished")
	return err
}

// GetMetrics returns the statistics of the last processed frame
func (p *Pipeline) GetMetrics() Metrics {
	return p.metrics
}

// GetDisparityMap returns the last computed map, or nil before Process
// succeeds
func (p *Pipeline) GetDisparityMap() *models.DisparityMap {
	return p.dmap
}
