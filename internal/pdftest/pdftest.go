// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftest builds small PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Build assembles a PDF from object bodies. Objects are numbered from 1 in
// the order given and object 1 must be the catalog.
func Build(objects ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// Stream returns a stream object body holding data.
func Stream(dict string, data []byte) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

// Helvetica is a WinAnsi Helvetica font dictionary where every printable
// glyph is half an em wide.
func Helvetica() string {
	widths := strings.TrimSpace(strings.Repeat("500 ", 95))
	return "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>"
}

// Figure returns a one-page US Letter PDF with jpg drawn as a 200x100
// image at (100, 500) and caption set in 12pt Helvetica with its baseline
// at y=485, below the image's left edge.
func Figure(jpg []byte, caption string) []byte {
	content := fmt.Sprintf("q 200 0 0 100 100 500 cm /Im0 Do Q\nBT /F1 12 Tf 100 485 Td (%s) Tj ET\n", caption)
	return Build(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>",
		"<< /Type /Page /Parent 2 0 R /Resources << /XObject << /Im0 5 0 R >> /Font << /F1 6 0 R >> >> /Contents 4 0 R >>",
		Stream("", []byte(content)),
		Stream("/Type /XObject /Subtype /Image /Width 8 /Height 8 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode", jpg),
		Helvetica(),
	)
}

// Blank returns a PDF of n empty pages of the given size in points.
func Blank(n int, width, height float64) []byte {
	objects := []string{"<< /Type /Catalog /Pages 2 0 R >>", ""}
	var kids []string
	for i := 0; i < n; i++ {
		page := len(objects) + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << >> /Contents %d 0 R >>", width, height, page+1),
			Stream("", []byte("q Q\n")),
		)
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n)
	return Build(objects...)
}

// FormFigures returns a one-page US Letter PDF where each image is wrapped
// in its own form XObject (/Fa and /Fb) whose resources name it /Im0. The
// first image covers (100, 500)-(300, 600) and the second, shifted by the
// form matrix, (100, 200)-(300, 300). The captions "Figure 1. Alpha" and
// "Figure 2. Beta" sit 15pt below each image's bottom edge, measured to
// the baseline.
func FormFigures(first, second []byte) []byte {
	content := "q /Fa Do Q q /Fb Do Q\n" +
		"BT /F1 12 Tf 100 485 Td (Figure 1. Alpha) Tj ET\n" +
		"BT /F1 12 Tf 100 185 Td (Figure 2. Beta) Tj ET\n"
	draw := []byte("q 200 0 0 100 100 500 cm /Im0 Do Q\n")
	image := "/Type /XObject /Subtype /Image /Width 8 /Height 8 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode"
	return Build(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>",
		"<< /Type /Page /Parent 2 0 R /Resources << /XObject << /Fa 5 0 R /Fb 6 0 R >> /Font << /F1 9 0 R >> >> /Contents 4 0 R >>",
		Stream("", []byte(content)),
		Stream("/Type /XObject /Subtype /Form /BBox [0 0 612 792] /Resources << /XObject << /Im0 7 0 R >> >>", draw),
		Stream("/Type /XObject /Subtype /Form /BBox [0 0 612 792] /Matrix [1 0 0 1 0 -300] /Resources << /XObject << /Im0 8 0 R >> >>", draw),
		Stream(image, first),
		Stream(image, second),
		Helvetica(),
	)
}
