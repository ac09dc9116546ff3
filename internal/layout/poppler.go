// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/pdfextract/internal/caption"
	"github.com/pdiddy/pdfextract/internal/container"
)

// popplerPrefix is the output base name handed to pdftohtml.
const popplerPrefix = "layout"

// PopplerSource runs pdftohtml -xml and reads text lines and images from
// its output. pdftohtml reports boxes from the top-left corner; they are
// normalized with the page height.
type PopplerSource struct {
	Runtime container.Runtime
}

// Name implements Source.
func (s *PopplerSource) Name() string { return "poppler" }

// Pages implements Source.
func (s *PopplerSource) Pages(ctx context.Context, pdfPath string) ([]Page, error) {
	abs, err := filepath.Abs(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", pdfPath, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("opening %s: %w", pdfPath, err)
	}

	dir, err := os.MkdirTemp("", "pdfextract-layout-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inv := container.Invocation{
		Args:   []string{"-xml", "-zoom", "1", "-q", abs, filepath.Join(dir, popplerPrefix)},
		Dir:    dir,
		Mounts: []string{filepath.Dir(abs)},
	}
	if err := s.Runtime.Run(ctx, inv); err != nil {
		return nil, fmt.Errorf("pdftohtml %s: %w", pdfPath, err)
	}

	f, err := os.Open(filepath.Join(dir, popplerPrefix+".xml"))
	if err != nil {
		return nil, fmt.Errorf("reading pdftohtml output: %w", err)
	}
	defer f.Close()

	pages, err := parsePdf2XML(f, dir)
	if err != nil {
		return nil, fmt.Errorf("parsing pdftohtml output for %s: %w", pdfPath, err)
	}
	return pages, nil
}

type pdf2xml struct {
	Pages []xmlPage `xml:"page"`
}

type xmlPage struct {
	Number int        `xml:"number,attr"`
	Height float64    `xml:"height,attr"`
	Width  float64    `xml:"width,attr"`
	Images []xmlImage `xml:"image"`
	Texts  []xmlText  `xml:"text"`
}

type xmlBox struct {
	Top    float64 `xml:"top,attr"`
	Left   float64 `xml:"left,attr"`
	Width  float64 `xml:"width,attr"`
	Height float64 `xml:"height,attr"`
}

func (b xmlBox) bbox(pageHeight float64) caption.BBox {
	return caption.Normalize(
		caption.BBox{X0: b.Left, Y0: b.Top, X1: b.Left + b.Width, Y1: b.Top + b.Height},
		caption.TopLeft, pageHeight,
	)
}

type xmlImage struct {
	xmlBox
	Src string `xml:"src,attr"`
}

type xmlText struct {
	xmlBox
	Inner string `xml:",innerxml"`
}

// parsePdf2XML converts pdftohtml XML into pages. Image sources are read
// relative to dir.
func parsePdf2XML(r io.Reader, dir string) ([]Page, error) {
	var doc pdf2xml
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(doc.Pages))
	for i, xp := range doc.Pages {
		page := Page{Number: xp.Number, Width: xp.Width, Height: xp.Height}
		if page.Number == 0 {
			page.Number = i + 1
		}

		var lines []Line
		for _, xt := range xp.Texts {
			text, err := innerText(xt.Inner)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", page.Number, err)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			lines = append(lines, Line{BBox: xt.bbox(xp.Height), FontSize: xt.Height, Text: text})
		}
		page.Texts = Group(lines)

		for j, xi := range xp.Images {
			img := Image{
				Index: j + 1,
				Name:  filepath.Base(xi.Src),
				BBox:  xi.bbox(xp.Height),
				Ext:   strings.TrimPrefix(filepath.Ext(xi.Src), "."),
			}
			img.Data, img.Err = readImageFile(dir, xi.Src)
			page.Images = append(page.Images, img)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// innerText returns the character data of a <text> element, dropping the
// inline formatting tags pdftohtml adds (<b>, <i>, <a>).
func innerText(inner string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader("<t>" + inner + "</t>"))
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("text element: %w", err)
		}
		if cd, ok := tok.(xml.CharData); ok {
			b.Write(cd)
		}
	}
}

func readImageFile(dir, src string) ([]byte, error) {
	if src == "" {
		return nil, errors.New("image has no source file")
	}
	path := src
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, filepath.Base(src))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", filepath.Base(src), err)
	}
	return data, nil
}
