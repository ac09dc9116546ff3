// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package caption

import "strings"

// DefaultMinOverlap is the horizontal overlap fraction a caption block must
// exceed.
const DefaultMinOverlap = 0.3

// Text is a positioned block of text that may contribute to a caption.
type Text struct {
	BBox BBox
	Text string
}

// Rule decides which text blocks form an image's caption.
type Rule struct {
	// Threshold is the maximum vertical gap, in page units, between the
	// bottom of the image and the top of the text block.
	Threshold float64

	// MinOverlap is the overlap fraction that must be exceeded. Zero means
	// DefaultMinOverlap.
	MinOverlap float64
}

func (r Rule) minOverlap() float64 {
	if r.MinOverlap <= 0 {
		return DefaultMinOverlap
	}
	return r.MinOverlap
}

// Accepts reports whether text qualifies as caption for img. Both boxes must
// be in the bottom-left convention.
func (r Rule) Accepts(img, text BBox) bool {
	gap := VerticalGap(img, text)
	if gap < 0 || gap > r.Threshold {
		return false
	}
	return OverlapFraction(img, text) > r.minOverlap()
}

// Match returns the caption for img: the stripped text of every accepted
// block in encounter order, joined with a single space. ok is false when no
// block was accepted, in which case the image has no caption.
func (r Rule) Match(img BBox, texts []Text) (caption string, ok bool) {
	var parts []string
	for _, t := range texts {
		if !r.Accepts(img, t.BBox) {
			continue
		}
		s := strings.TrimSpace(t.Text)
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}
