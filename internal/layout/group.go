// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import (
	"math"
	"strings"
	"unicode"

	"github.com/pdiddy/pdfextract/internal/caption"
)

const (
	// LineGapFactor is the largest vertical gap between two lines of one
	// block, as a fraction of the taller line's height.
	LineGapFactor = 0.5

	// WordSpaceFactor is the horizontal gap between two runs, as a fraction
	// of the font size, above which a space is inserted.
	WordSpaceFactor = 0.3

	// BaselineFactor is the baseline difference, as a fraction of the font
	// size, within which two runs share a line.
	BaselineFactor = 0.3

	// Glyph boxes span from the descent below the baseline to the ascent
	// above it.
	descentFactor = 0.2
	ascentFactor  = 0.8
)

// Run is a piece of text drawn at one position, usually a single glyph.
// X and Y locate the start of the baseline in bottom-left coordinates.
type Run struct {
	X, Y     float64
	W        float64
	FontSize float64
	Text     string
}

// Line is a row of runs sharing a baseline.
type Line struct {
	BBox     caption.BBox
	FontSize float64
	Text     string
}

func (r Run) bbox() caption.BBox {
	return caption.BBox{
		X0: r.X,
		Y0: r.Y - descentFactor*r.FontSize,
		X1: r.X + r.W,
		Y1: r.Y + ascentFactor*r.FontSize,
	}
}

func isBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}

// GroupRuns merges runs into lines. A run continues the current line when
// its baseline is within BaselineFactor of the line's font size and it does
// not start left of the line's end by more than one font size. Whitespace
// runs only mark a word break.
func GroupRuns(runs []Run) []Line {
	var (
		lines   []Line
		cur     *Line
		b       strings.Builder
		baseY   float64
		pending bool
	)
	flush := func() {
		if cur != nil {
			cur.Text = strings.TrimSpace(b.String())
			if cur.Text != "" {
				lines = append(lines, *cur)
			}
		}
		cur = nil
		b.Reset()
		pending = false
	}

	for _, r := range runs {
		if isBlank(r.Text) {
			pending = true
			continue
		}
		fs := r.FontSize
		if fs <= 0 {
			fs = 1
		}
		if cur != nil {
			sameLine := math.Abs(r.Y-baseY) <= BaselineFactor*math.Max(fs, cur.FontSize) &&
				r.X >= cur.BBox.X1-math.Max(fs, cur.FontSize)
			if !sameLine {
				flush()
			}
		}
		if cur == nil {
			cur = &Line{BBox: r.bbox(), FontSize: fs}
			baseY = r.Y
			b.WriteString(r.Text)
			pending = false
			continue
		}
		gap := r.X - cur.BBox.X1
		if (pending || gap > WordSpaceFactor*fs) && !strings.HasSuffix(b.String(), " ") {
			b.WriteByte(' ')
		}
		pending = false
		b.WriteString(r.Text)
		cur.BBox = cur.BBox.Union(r.bbox())
		cur.FontSize = math.Max(cur.FontSize, fs)
	}
	flush()
	return lines
}

// Group merges consecutive lines into blocks. A line joins the current
// block when it starts below the block's last line with a gap of at most
// LineGapFactor times the taller line's height and overlaps it
// horizontally. Block text joins the lines with "\n".
func Group(lines []Line) []TextBlock {
	var (
		blocks []TextBlock
		texts  []string
		last   Line
	)
	flush := func() {
		if len(texts) > 0 {
			blocks[len(blocks)-1].Text = strings.Join(texts, "\n")
		}
		texts = nil
	}

	for i, ln := range lines {
		if i > 0 && continuesBlock(last, ln) {
			blocks[len(blocks)-1].BBox = blocks[len(blocks)-1].BBox.Union(ln.BBox)
		} else {
			flush()
			blocks = append(blocks, TextBlock{BBox: ln.BBox})
		}
		texts = append(texts, ln.Text)
		last = ln
	}
	flush()
	return blocks
}

func continuesBlock(prev, next Line) bool {
	h := math.Max(prev.BBox.Height(), next.BBox.Height())
	gap := prev.BBox.Y0 - next.BBox.Y1
	if gap < -0.5*h || gap > LineGapFactor*h {
		return false
	}
	overlap := math.Min(prev.BBox.X1, next.BBox.X1) - math.Max(prev.BBox.X0, next.BBox.X0)
	return overlap > 0
}
