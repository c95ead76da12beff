package dashboard

import (
	"math"
	"strings"

	"predictboard/internal/forecast"
)

// Glyphs used by Sparkline.
const (
	GlyphPoint      = '•'
	GlyphPrediction = '◆'
	GlyphFill       = '·'
)

// Sparkline plots points on a width×height character grid, top row first.
// Long series are sampled down to width columns; the last column is always
// the last point, so the prediction stays visible. Space below each point
// is filled with GlyphFill.
func Sparkline(points []forecast.ChartPoint, width, height int) []string {
	if len(points) == 0 || width <= 0 || height <= 0 {
		return nil
	}

	cols := sample(points, width)
	lo, hi := forecast.Bounds(cols)
	span := hi.Sub(lo).InexactFloat64()

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", len(cols)))
	}

	for c, p := range cols {
		level := (height - 1) / 2
		if span > 0 {
			frac := p.Close.Sub(lo).InexactFloat64() / span
			level = int(math.Round(frac * float64(height-1)))
		}
		row := height - 1 - level

		glyph := GlyphPoint
		if p.Predicted {
			glyph = GlyphPrediction
		}
		grid[row][c] = glyph
		for r := row + 1; r < height; r++ {
			grid[r][c] = GlyphFill
		}
	}

	out := make([]string, height)
	for r, line := range grid {
		out[r] = string(line)
	}
	return out
}

// sample picks at most width points, evenly spaced, keeping first and last.
func sample(points []forecast.ChartPoint, width int) []forecast.ChartPoint {
	n := len(points)
	if n <= width {
		return points
	}
	if width == 1 {
		return points[n-1:]
	}
	out := make([]forecast.ChartPoint, width)
	for c := range out {
		i := int(math.Round(float64(c) * float64(n-1) / float64(width-1)))
		out[c] = points[i]
	}
	return out
}
