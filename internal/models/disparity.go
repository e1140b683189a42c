package models

// MatchStatus records why a disparity map cell holds its value.
// It exists next to the disparity channel because the value 0 is used both
// for a true zero disparity and for every kind of rejected match.
type MatchStatus uint8

const (
	// Unprocessed cells were never visited (the final row and column)
	Unprocessed MatchStatus = iota

	// Accepted cells passed the validity ratio gate
	Accepted

	// TooCloseToEdge cells sit left of the minimum valid disparity
	TooCloseToEdge

	// EmptyRange cells had no candidate offsets to search
	EmptyRange

	// Textureless cells produced the same cost for every candidate
	Textureless

	// Ambiguous cells failed the min/max ratio test
	Ambiguous
)

// String returns a short lowercase label for the status
func (s MatchStatus) String() string {
	switch s {
	case Unprocessed:
		return "unprocessed"
	case Accepted:
		return "accepted"
	case TooCloseToEdge:
		return "too-close-to-edge"
	case EmptyRange:
		return "empty-range"
	case Textureless:
		return "textureless"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// AllStatuses lists every status in declaration order
var AllStatuses = []MatchStatus{Unprocessed, Accepted, TooCloseToEdge, EmptyRange, Textureless, Ambiguous}

// DisparityMap is the output of the correlation pass. It has exactly the
// dimensions of the left input image.
type DisparityMap struct {
	// Disparity holds one 8-bit horizontal offset per pixel.
	// Every value lies in [0, MaxDisparity].
	Disparity *Image

	// Status holds the MatchStatus of each pixel in the same row-major order
	Status []MatchStatus

	// MaxDisparity is the upper bound the map was computed with
	MaxDisparity int
}

// NewDisparityMap allocates an empty map of the given dimensions
func NewDisparityMap(width, height, maxDisparity int) *DisparityMap {
	img := NewImage(width, height)
	return &DisparityMap{
		Disparity:    img,
		Status:       make([]MatchStatus, len(img.Pix)),
		MaxDisparity: maxDisparity,
	}
}

// Width of the map in pixels
func (d *DisparityMap) Width() int { return d.Disparity.Width }

// Height of the map in pixels
func (d *DisparityMap) Height() int { return d.Disparity.Height }

// StatusRow returns the status cells of row y
func (d *DisparityMap) StatusRow(y int) []MatchStatus {
	w := d.Disparity.Width
	return d.Status[y*w : (y+1)*w : (y+1)*w]
}

// StatusAt returns the status of pixel (x, y)
func (d *DisparityMap) StatusAt(x, y int) MatchStatus {
	return d.StatusRow(y)[x]
}

// ValidMask renders the accepted cells as 255 and everything else as 0
func (d *DisparityMap) ValidMask() *Image {
	mask := NewImage(d.Width(), d.Height())
	for i, s := range d.Status {
		if s == Accepted {
			mask.Pix[i] = 255
		}
	}
	return mask
}

// StatusCounts tallies how many cells carry each status
func (d *DisparityMap) StatusCounts() map[MatchStatus]int {
	counts := make(map[MatchStatus]int, len(AllStatuses))
	for _, s := range d.Status {
		counts[s]++
	}
	return counts
}
