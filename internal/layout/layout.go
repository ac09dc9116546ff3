// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package layout reads the placement of images and text blocks on PDF pages.
// Every box a Source returns is already in the bottom-left convention of
// package caption, whatever the parser underneath uses.
package layout

import (
	"context"
	"fmt"

	"github.com/pdiddy/pdfextract/internal/caption"
	"github.com/pdiddy/pdfextract/internal/container"
	"github.com/pdiddy/pdfextract/pkg/types"
)

// Page is the layout of one PDF page.
type Page struct {
	// Number is the 1-based page number.
	Number int

	Width  float64
	Height float64

	// Images in content order.
	Images []Image

	// Texts in reading order as the parser reports it.
	Texts []TextBlock
}

// Image is one image placed on a page.
type Image struct {
	// Index is the 1-based position among the page's images.
	Index int

	// Name is the XObject resource name or the source file name.
	Name string

	BBox caption.BBox

	// Ext is the file extension of Data without the dot ("jpg", "png").
	Ext string

	// Data holds the raw image bytes as stored by the source.
	Data []byte

	// Err is set when the bytes could not be extracted.
	Err error
}

// TextBlock is a group of text lines that belong together.
type TextBlock struct {
	BBox caption.BBox
	Text string
}

// Source parses the layout of a PDF document.
type Source interface {
	// Name returns the backend name.
	Name() string

	// Pages returns the layout of every page in order.
	Pages(ctx context.Context, pdfPath string) ([]Page, error)
}

// CaptionTexts converts the page's text blocks for caption matching.
func (p Page) CaptionTexts() []caption.Text {
	out := make([]caption.Text, len(p.Texts))
	for i, tb := range p.Texts {
		out[i] = caption.Text{BBox: tb.BBox, Text: tb.Text}
	}
	return out
}

// NewSource returns the Source for backend. The poppler backend runs
// pdftohtml through rt, which may be nil for the pdf backend.
func NewSource(backend types.LayoutBackend, rt container.Runtime) (Source, error) {
	switch backend {
	case types.LayoutPDF, "":
		return &PDFSource{}, nil
	case types.LayoutPoppler:
		if rt == nil {
			return nil, fmt.Errorf("poppler layout backend needs a tool runtime")
		}
		return &PopplerSource{Runtime: rt}, nil
	default:
		return nil, fmt.Errorf("unknown layout backend %q (want %q or %q)", backend, types.LayoutPDF, types.LayoutPoppler)
	}
}
