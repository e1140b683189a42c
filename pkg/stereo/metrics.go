package stereo

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"stereodisparity/internal/models"
)

// Metrics summarises a disparity map and the time spent producing it.
type Metrics struct {
	// ValidFraction is the share of visited pixels whose match was accepted.
	// Unprocessed border pixels are not counted as visited.
	ValidFraction float64

	// MeanDisparity and StdDevDisparity describe the accepted disparities
	MeanDisparity   float64
	StdDevDisparity float64

	// MedianDisparity is the 50% quantile of the accepted disparities
	MedianDisparity float64

	// MinDisparity and MaxDisparity are the extreme accepted disparities
	MinDisparity float64
	MaxDisparity float64

	// StatusCounts tallies every pixel by MatchStatus
	StatusCounts map[models.MatchStatus]int

	// Timings records the duration of each pipeline step by name
	Timings map[string]time.Duration
}

// computeMetrics derives the statistics of a finished map. Statistics of the
// disparity distribution stay zero when no pixel was accepted.
func computeMetrics(dmap *models.DisparityMap) Metrics {
	m := Metrics{
		StatusCounts: dmap.StatusCounts(),
		Timings:      make(map[string]time.Duration),
	}

	visited := len(dmap.Status) - m.StatusCounts[models.Unprocessed]
	if visited == 0 {
		return m
	}

	values := make([]float64, 0, m.StatusCounts[models.Accepted])
	for i, s := range dmap.Status {
		if s == models.Accepted {
			values = append(values, float64(dmap.Disparity.Pix[i]))
		}
	}
	m.ValidFraction = float64(len(values)) / float64(visited)
	if len(values) == 0 {
		return m
	}

	m.MeanDisparity, m.StdDevDisparity = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		m.StdDevDisparity = 0
	}
	m.MinDisparity = floats.Min(values)
	m.MaxDisparity = floats.Max(values)

	// Quantile requires sorted input
	sort.Float64s(values)
	m.MedianDisparity = stat.Quantile(0.5, stat.Empirical, values, nil)

	return m
}
