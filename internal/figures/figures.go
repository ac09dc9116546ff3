// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package figures finds images that have a caption directly below them and
// saves each image with its caption, and extracts the text layer of whole
// pages.
package figures

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdfextract/internal/caption"
	"github.com/pdiddy/pdfextract/internal/layout"
	"github.com/pdiddy/pdfextract/pkg/types"
)

// defaultExt is used when a source does not report an image format.
const defaultExt = "png"

// ManifestName returns the manifest file name for format.
func ManifestName(format types.ManifestFormat) string {
	if format == types.ManifestYAML {
		return "figures.yaml"
	}
	return "figures.json"
}

// Extract saves every captioned image of pdfPath into cfg.OutputDir as
// page{N}_img{i}.{ext} with the caption in page{N}_img{i}.txt, then writes
// the manifest. Images without a caption are skipped. Images whose bytes
// could not be extracted are reported on w and skipped.
func Extract(ctx context.Context, src layout.Source, pdfPath string, cfg types.FigureConfig, w io.Writer) ([]types.FigureCaption, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	pages, err := src.Pages(ctx, pdfPath)
	if err != nil {
		return nil, err
	}

	threshold := cfg.CaptionThreshold
	if threshold <= 0 {
		threshold = cfg.Backend.DefaultThreshold()
	}
	rule := caption.Rule{Threshold: threshold, MinOverlap: cfg.MinOverlap}

	results := []types.FigureCaption{}
	for _, page := range pages {
		texts := page.CaptionTexts()
		for _, img := range page.Images {
			text, ok := rule.Match(img.BBox, texts)
			if !ok {
				continue
			}
			if img.Err != nil || len(img.Data) == 0 {
				reason := img.Err
				if reason == nil {
					reason = fmt.Errorf("image %s has no data", img.Name)
				}
				fmt.Fprintf(w, "Error extracting image data: %v\n", reason)
				continue
			}

			rec, err := save(cfg.OutputDir, page.Number, img, text)
			if err != nil {
				return results, err
			}
			results = append(results, rec)
			fmt.Fprintf(w, "[Page %d] Image saved at: %s\n", rec.Page, rec.ImagePath)
			fmt.Fprintf(w, "Caption: %s\n\n", rec.Caption)
		}
	}

	if err := writeManifest(cfg.OutputDir, cfg.ManifestFormat, results); err != nil {
		return results, err
	}
	return results, nil
}

func save(dir string, pageNum int, img layout.Image, text string) (types.FigureCaption, error) {
	ext := strings.ToLower(strings.TrimPrefix(img.Ext, "."))
	if ext == "" {
		ext = defaultExt
	}
	base := fmt.Sprintf("page%d_img%d", pageNum, img.Index)
	imagePath := filepath.Join(dir, base+"."+ext)
	captionPath := filepath.Join(dir, base+".txt")
	text = strings.TrimSpace(text)

	if err := os.WriteFile(imagePath, img.Data, 0o644); err != nil {
		return types.FigureCaption{}, fmt.Errorf("writing %s: %w", imagePath, err)
	}
	if err := os.WriteFile(captionPath, []byte(text), 0o644); err != nil {
		return types.FigureCaption{}, fmt.Errorf("writing %s: %w", captionPath, err)
	}
	return types.FigureCaption{Page: pageNum, ImagePath: imagePath, Caption: text}, nil
}

func writeManifest(dir string, format types.ManifestFormat, records []types.FigureCaption) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case types.ManifestYAML:
		data, err = yaml.Marshal(records)
	case types.ManifestJSON, "":
		data, err = json.MarshalIndent(records, "", "  ")
	default:
		return fmt.Errorf("unknown manifest format %q", format)
	}
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestName(format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
