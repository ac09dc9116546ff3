// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package caption implements the figure caption heuristic: a text block is
// part of an image's caption when it sits just below the image and overlaps
// it horizontally.
//
// All comparisons happen in one coordinate convention, PDF user space with
// the origin at the bottom-left corner of the page and y growing upward.
// Boxes from parsers that use a top-left origin are converted with Normalize
// before they reach the rule.
package caption

import "math"

// Origin identifies the vertical-axis convention of a bounding box.
type Origin int

const (
	// BottomLeft is PDF user space: y grows upward.
	BottomLeft Origin = iota
	// TopLeft is screen space: y grows downward from the top of the page.
	TopLeft
)

// String returns the name of the convention.
func (o Origin) String() string {
	if o == TopLeft {
		return "top-left"
	}
	return "bottom-left"
}

// BBox is an axis-aligned rectangle (x0, y0, x1, y1) with x0 <= x1 and
// y0 <= y1. In the bottom-left convention Y0 is the bottom edge and Y1 the
// top edge.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// NewBBox returns the box spanned by two corners, in any order.
func NewBBox(x0, y0, x1, y1 float64) BBox {
	return BBox{
		X0: math.Min(x0, x1),
		Y0: math.Min(y0, y1),
		X1: math.Max(x0, x1),
		Y1: math.Max(y0, y1),
	}
}

// Width returns x1 - x0.
func (b BBox) Width() float64 { return b.X1 - b.X0 }

// Height returns y1 - y0.
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// Union returns the smallest box containing both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		X0: math.Min(b.X0, o.X0),
		Y0: math.Min(b.Y0, o.Y0),
		X1: math.Max(b.X1, o.X1),
		Y1: math.Max(b.Y1, o.Y1),
	}
}

// Normalize converts b from the given origin to the bottom-left convention.
// A top-left box (x0, top, x1, bottom) on a page of height h becomes
// (x0, h-bottom, x1, h-top).
func Normalize(b BBox, origin Origin, pageHeight float64) BBox {
	if origin == BottomLeft {
		return b
	}
	return BBox{
		X0: b.X0,
		Y0: pageHeight - b.Y1,
		X1: b.X1,
		Y1: pageHeight - b.Y0,
	}
}

// VerticalGap returns the distance from the bottom of img down to the top of
// text, both in the bottom-left convention. It is negative when the text
// reaches above the bottom of the image.
func VerticalGap(img, text BBox) float64 {
	return img.Y0 - text.Y1
}

// OverlapFraction returns the width of the horizontal overlap between img and
// text divided by the width of img. It is 0 when img has no width.
func OverlapFraction(img, text BBox) float64 {
	w := img.Width()
	if w <= 0 {
		return 0
	}
	overlap := math.Max(0, math.Min(img.X1, text.X1)-math.Max(img.X0, text.X0))
	return overlap / w
}
