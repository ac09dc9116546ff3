// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package raster renders PDF pages to images.
package raster

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/gen2brain/go-fitz"

	"github.com/pdiddy/pdfextract/internal/container"
	"github.com/pdiddy/pdfextract/pkg/types"
)

// Page is one rendered page.
type Page struct {
	Number int // 1-based
	Total  int // pages in the document
	Image  image.Image
}

// PageFunc receives each rendered page in page order. An error stops
// rendering and is returned from Rasterize unchanged.
type PageFunc func(Page) error

// Rasterizer renders every page of a PDF at a resolution, handing pages to
// a PageFunc one at a time so only one decoded page is held in memory.
type Rasterizer interface {
	// Name returns the backend name.
	Name() string

	// Rasterize calls fn for every page in order. The context is checked
	// before each page.
	Rasterize(ctx context.Context, pdfPath string, dpi int, fn PageFunc) error
}

// New returns the rasterizer for backend. rt runs pdftoppm and may be nil
// for the mupdf backend.
func New(backend types.RasterBackend, rt container.Runtime) (Rasterizer, error) {
	switch backend {
	case types.RasterPdftoppm, "":
		if rt == nil {
			return nil, fmt.Errorf("pdftoppm rasterizer needs a tool runtime")
		}
		return &Poppler{Runtime: rt}, nil
	case types.RasterMuPDF:
		return &Fitz{}, nil
	default:
		return nil, fmt.Errorf("unknown rasterizer %q (want %q or %q)", backend, types.RasterPdftoppm, types.RasterMuPDF)
	}
}

// Poppler renders pages with pdftoppm.
type Poppler struct {
	Runtime container.Runtime
}

// Name implements Rasterizer.
func (p *Poppler) Name() string { return "pdftoppm" }

// pageFile matches pdftoppm output names; the page number is zero-padded
// to the width of the page count.
var pageFile = regexp.MustCompile(`^page-0*(\d+)\.png$`)

// Rasterize implements Rasterizer. pdftoppm renders all pages to a temp
// dir first; each PNG is decoded only when its page is handed to fn.
func (p *Poppler) Rasterize(ctx context.Context, pdfPath string, dpi int, fn PageFunc) error {
	abs, err := filepath.Abs(pdfPath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", pdfPath, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("opening %s: %w", pdfPath, err)
	}

	dir, err := os.MkdirTemp("", "pdfextract-raster-")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inv := container.Invocation{
		Args:   []string{"-r", strconv.Itoa(dpi), "-png", abs, filepath.Join(dir, "page")},
		Dir:    dir,
		Mounts: []string{filepath.Dir(abs)},
	}
	if err := p.Runtime.Run(ctx, inv); err != nil {
		return fmt.Errorf("pdftoppm %s: %w", pdfPath, err)
	}

	files, err := pageFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("pdftoppm produced no pages for %s", pdfPath)
	}

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := decodePNG(f)
		if err != nil {
			return err
		}
		if err := fn(Page{Number: i + 1, Total: len(files), Image: img}); err != nil {
			return err
		}
	}
	return nil
}

// pageFiles lists the rendered pages in dir sorted by page number.
func pageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	type numbered struct {
		n    int
		path string
	}
	var pages []numbered
	for _, e := range entries {
		m := pageFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pages = append(pages, numbered{n: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.path
	}
	return out, nil
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Fitz renders pages in process with MuPDF.
type Fitz struct{}

// Name implements Rasterizer.
func (f *Fitz) Name() string { return "mupdf" }

// Rasterize implements Rasterizer.
func (f *Fitz) Rasterize(ctx context.Context, pdfPath string, dpi int, fn PageFunc) error {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", pdfPath, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return fmt.Errorf("rendering page %d of %s: %w", i+1, pdfPath, err)
		}
		if err := fn(Page{Number: i + 1, Total: n, Image: img}); err != nil {
			return err
		}
	}
	return nil
}
