// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ocr rasterizes scanned PDF pages and recognizes their text.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/pdfextract/internal/raster"
	"github.com/pdiddy/pdfextract/pkg/types"
)

// DefaultDPI is the rasterization resolution used when none is configured.
const DefaultDPI = 300

// FullTextFile collects the text of every page.
const FullTextFile = "full_text.txt"

// Engine recognizes text in a PNG image.
type Engine interface {
	Recognize(ctx context.Context, png []byte) (string, error)
	Close() error
}

// Pages rasterizes pdfPath, recognizes each page and writes page_N.txt
// (and page_N.png when cfg.SaveImages is set) into cfg.OutputDir, followed
// by full_text.txt with every page under a "--- Page N ---" header.
// Progress lines are written to w.
func Pages(ctx context.Context, r raster.Rasterizer, eng Engine, pdfPath string, cfg types.OCRConfig, w io.Writer) ([]types.OCRPage, error) {
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	fmt.Fprintln(w, "Converting PDF to images...")
	var (
		full    strings.Builder
		results []types.OCRPage
	)
	err := r.Rasterize(ctx, pdfPath, dpi, func(page raster.Page) error {
		n := page.Number
		fmt.Fprintf(w, "OCR on page %d...\n", n)

		var buf bytes.Buffer
		if err := png.Encode(&buf, page.Image); err != nil {
			return fmt.Errorf("encoding page %d: %w", n, err)
		}

		rec := types.OCRPage{Page: n, TextPath: filepath.Join(cfg.OutputDir, fmt.Sprintf("page_%d.txt", n))}
		if cfg.SaveImages {
			rec.ImagePath = filepath.Join(cfg.OutputDir, fmt.Sprintf("page_%d.png", n))
			if err := os.WriteFile(rec.ImagePath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("writing page %d image: %w", n, err)
			}
		}

		text, err := eng.Recognize(ctx, buf.Bytes())
		if err != nil {
			return fmt.Errorf("OCR page %d: %w", n, err)
		}
		if err := os.WriteFile(rec.TextPath, []byte(text), 0o644); err != nil {
			return fmt.Errorf("writing page %d text: %w", n, err)
		}
		fmt.Fprintf(&full, "\n\n--- Page %d ---\n%s", n, text)
		results = append(results, rec)
		return nil
	})
	if err != nil {
		return results, err
	}

	fullPath := filepath.Join(cfg.OutputDir, FullTextFile)
	if err := os.WriteFile(fullPath, []byte(full.String()), 0o644); err != nil {
		return results, fmt.Errorf("writing %s: %w", FullTextFile, err)
	}
	fmt.Fprintf(w, "OCR text extraction complete: %d pages, full text at %s\n", len(results), fullPath)
	return results, nil
}
