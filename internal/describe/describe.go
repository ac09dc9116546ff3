// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package describe asks a hosted vision-language model to describe each
// page of a scanned PDF.
package describe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/pdfextract/internal/raster"
	"github.com/pdiddy/pdfextract/pkg/types"
)

const (
	// DefaultQuestion is sent with each page when none is configured.
	DefaultQuestion = "Please describe the contents of this page."

	// DefaultModel is the Hugging Face model used when none is configured.
	DefaultModel = "HuggingFaceM4/Idefics3-8B-Llama3"

	// DefaultMaxNewTokens bounds the description length.
	DefaultMaxNewTokens = 500

	// DefaultDPI is the rasterization resolution.
	DefaultDPI = 200

	// Placeholder replaces a description whose response could not be parsed.
	Placeholder = "[Error extracting text]"

	// ResultFile lists the page descriptions.
	ResultFile = "extracted_text.json"
)

// Describer answers a question about a JPEG page image.
type Describer interface {
	Describe(ctx context.Context, jpeg []byte, question string) (string, error)
}

// Document rasterizes pdfPath and describes every page with d. Each page is
// saved as page_N.jpg in cfg.OutputDir and the descriptions are written to
// extracted_text.json. Progress lines are written to w.
func Document(ctx context.Context, r raster.Rasterizer, d Describer, pdfPath string, cfg types.DescribeConfig, w io.Writer) ([]types.PageDescription, error) {
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	question := cfg.Question
	if question == "" {
		question = DefaultQuestion
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var results []types.PageDescription
	err := r.Rasterize(ctx, pdfPath, dpi, func(page raster.Page) error {
		n := page.Number
		fmt.Fprintf(w, "Processing page %d/%d...\n", n, page.Total)

		sent, err := EncodeJPEG(page.Image, cfg.MaxSide)
		if err != nil {
			return fmt.Errorf("encoding page %d: %w", n, err)
		}
		text, err := d.Describe(ctx, sent, question)
		if err != nil {
			return fmt.Errorf("describing page %d: %w", n, err)
		}

		// The saved page keeps full resolution.
		saved := sent
		if cfg.MaxSide > 0 {
			if saved, err = EncodeJPEG(page.Image, 0); err != nil {
				return fmt.Errorf("encoding page %d: %w", n, err)
			}
		}
		imagePath := filepath.Join(cfg.OutputDir, fmt.Sprintf("page_%d.jpg", n))
		if err := os.WriteFile(imagePath, saved, 0o644); err != nil {
			return fmt.Errorf("writing page %d image: %w", n, err)
		}

		results = append(results, types.PageDescription{Page: n, Image: imagePath, Description: text})
		return nil
	})
	if err != nil {
		return results, err
	}
	if results == nil {
		results = []types.PageDescription{}
	}

	jsonPath := filepath.Join(cfg.OutputDir, ResultFile)
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return results, fmt.Errorf("marshaling descriptions: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return results, fmt.Errorf("writing %s: %w", ResultFile, err)
	}

	fmt.Fprintf(w, "Done. Extracted text saved to: %s\n", jsonPath)
	return results, nil
}
