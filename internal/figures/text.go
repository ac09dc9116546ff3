// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package figures

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/pdfextract/internal/layout"
	"github.com/pdiddy/pdfextract/pkg/types"
)

// previewRunes is how much of each page WriteAllText prints.
const previewRunes = 500

// FullTextFile collects the text of every page.
const FullTextFile = "full_text.txt"

// AllText returns the text layer of every page: the page's text blocks in
// order, one per line, with surrounding whitespace removed.
func AllText(ctx context.Context, src layout.Source, pdfPath string) ([]types.PageText, error) {
	pages, err := src.Pages(ctx, pdfPath)
	if err != nil {
		return nil, err
	}
	out := make([]types.PageText, 0, len(pages))
	for _, p := range pages {
		texts := make([]string, len(p.Texts))
		for i, tb := range p.Texts {
			texts[i] = tb.Text
		}
		out = append(out, types.PageText{Page: p.Number, Text: strings.TrimSpace(strings.Join(texts, "\n"))})
	}
	return out, nil
}

// WriteAllText writes page{N}.txt for every page and full_text.txt into
// dir, and prints the first 500 characters of each page to w.
func WriteAllText(pages []types.PageText, dir string, w io.Writer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var full strings.Builder
	for _, p := range pages {
		path := filepath.Join(dir, fmt.Sprintf("page%d.txt", p.Page))
		if err := os.WriteFile(path, []byte(p.Text), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(&full, "\n\n--- Page %d ---\n%s", p.Page, p.Text)
		fmt.Fprintf(w, "\n===== Page %d =====\n%s...\n", p.Page, preview(p.Text))
	}

	if err := os.WriteFile(filepath.Join(dir, FullTextFile), []byte(full.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", FullTextFile, err)
	}
	return nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > previewRunes {
		return string(r[:previewRunes])
	}
	return s
}
